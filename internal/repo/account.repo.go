package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"microshop/internal/domain"
)

type AccountRepo interface {
	FindById(ctx context.Context, id int64) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	CreateAccount(ctx context.Context, tx *sql.Tx, account *domain.Account) error
	UpdateAccount(ctx context.Context, tx *sql.Tx, account *domain.Account) error
	DeleteAccount(ctx context.Context, tx *sql.Tx, id int64) error
}

type accountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) AccountRepo {
	return &accountRepo{db: db}
}

const accountColumns = `id, name, surname, address, username, password_hash, role, created_at`

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Surname,
		&a.Address,
		&a.Username,
		&a.PasswordHash,
		&a.Role,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) FindById(ctx context.Context, id int64) (*domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id))
}

func (r *accountRepo) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE username = $1", username))
}

func (r *accountRepo) CreateAccount(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	err := execNode(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO accounts (name, surname, address, username, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		account.Name, account.Surname, account.Address, account.Username, account.PasswordHash, account.Role,
	).Scan(&account.ID, &account.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("username %q: %w", account.Username, domain.ErrConflict)
	}
	return err
}

func (r *accountRepo) UpdateAccount(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	res, err := execNode(r.db, tx).ExecContext(ctx, `
		UPDATE accounts
		SET name = $2, surname = $3, address = $4, username = $5, password_hash = $6
		WHERE id = $1`,
		account.ID, account.Name, account.Surname, account.Address, account.Username, account.PasswordHash,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("username %q: %w", account.Username, domain.ErrConflict)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepo) DeleteAccount(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := execNode(r.db, tx).ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
