package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"microshop/internal/domain"
)

type OrderRepo interface {
	FindById(ctx context.Context, id int64) (*domain.Order, error)
	FindByAccount(ctx context.Context, accountID int64) ([]domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Order, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	DeleteByAccount(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, account_id, addressee, address, total_cost, placed_at, COALESCE(idempotency_key, ''), created_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.AccountID,
		&o.Addressee,
		&o.Address,
		&o.TotalCost,
		&o.Date,
		&o.IdempotencyKey,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindById(ctx context.Context, id int64) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Order, error) {
	return scanOrder(execNode(r.db, tx).QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key))
}

func (r *orderRepo) FindByAccount(ctx context.Context, accountID int64) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE account_id = $1 ORDER BY id", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// CreateOrder inserts order and fills in its ID and CreatedAt. A duplicate
// idempotency key yields domain.ErrConflict.
func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	var key sql.NullString
	if order.IdempotencyKey != "" {
		key = sql.NullString{String: order.IdempotencyKey, Valid: true}
	}
	err := execNode(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO orders (account_id, addressee, address, total_cost, placed_at, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		order.AccountID, order.Addressee, order.Address, order.TotalCost, order.Date, key,
	).Scan(&order.ID, &order.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("idempotency key %q: %w", order.IdempotencyKey, domain.ErrConflict)
	}
	return err
}

func (r *orderRepo) DeleteByAccount(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error) {
	res, err := execNode(r.db, tx).ExecContext(ctx, "DELETE FROM orders WHERE account_id = $1", accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
