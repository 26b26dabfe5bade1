package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"microshop/internal/domain"
)

type CartRepo interface {
	FindByAccount(ctx context.Context, accountID int64) ([]domain.CartLine, error)
	FindLine(ctx context.Context, accountID, productID int64) (*domain.CartLine, error)
	// InsertLine adds a line with its quantity, or bumps the quantity by one
	// when a concurrent add created the line first.
	InsertLine(ctx context.Context, tx *sql.Tx, line domain.CartLine) error
	IncrementQuantity(ctx context.Context, tx *sql.Tx, accountID, productID int64) error
	DeleteByAccount(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error)
}

type cartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepo {
	return &cartRepo{db: db}
}

func (r *cartRepo) FindByAccount(ctx context.Context, accountID int64) ([]domain.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, account_id, name, unit_price, quantity
		FROM cart_lines
		WHERE account_id = $1
		ORDER BY added_at, product_id`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.AccountID, &l.Name, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *cartRepo) FindLine(ctx context.Context, accountID, productID int64) (*domain.CartLine, error) {
	var l domain.CartLine
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, account_id, name, unit_price, quantity
		FROM cart_lines
		WHERE account_id = $1 AND product_id = $2`,
		accountID, productID,
	).Scan(&l.ProductID, &l.AccountID, &l.Name, &l.UnitPrice, &l.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *cartRepo) InsertLine(ctx context.Context, tx *sql.Tx, line domain.CartLine) error {
	_, err := execNode(r.db, tx).ExecContext(ctx, `
		INSERT INTO cart_lines (account_id, product_id, name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + 1`,
		line.AccountID, line.ProductID, line.Name, line.UnitPrice, line.Quantity,
	)
	return err
}

func (r *cartRepo) IncrementQuantity(ctx context.Context, tx *sql.Tx, accountID, productID int64) error {
	res, err := execNode(r.db, tx).ExecContext(ctx, `
		UPDATE cart_lines SET quantity = quantity + 1
		WHERE account_id = $1 AND product_id = $2`,
		accountID, productID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart line %d/%d: %w", accountID, productID, domain.ErrNotFound)
	}
	return nil
}

func (r *cartRepo) DeleteByAccount(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error) {
	res, err := execNode(r.db, tx).ExecContext(ctx, `DELETE FROM cart_lines WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
