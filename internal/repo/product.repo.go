package repo

import (
	"context"
	"database/sql"
	"errors"

	"microshop/internal/domain"
)

type ProductRepo interface {
	FindById(ctx context.Context, id int64) (*domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
	FindByCategory(ctx context.Context, category string) ([]domain.Product, error)
	FindByColor(ctx context.Context, color string) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, tx *sql.Tx, product *domain.Product) error
	UpdateProduct(ctx context.Context, tx *sql.Tx, product *domain.Product) error
	DeleteProduct(ctx context.Context, tx *sql.Tx, id int64) error
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

const productColumns = `id, name, category, price, color`

func (r *productRepo) FindById(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindAll(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

func (r *productRepo) FindByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products WHERE category = $1 ORDER BY id", category)
}

func (r *productRepo) FindByColor(ctx context.Context, color string) ([]domain.Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products WHERE color = $1 ORDER BY id", color)
}

func (r *productRepo) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Color); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Categories lists distinct non-empty categories in first-seen order.
func (r *productRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category FROM products
		WHERE category <> ''
		GROUP BY category
		ORDER BY MIN(id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *productRepo) CreateProduct(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	return execNode(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO products (name, category, price, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		p.Name, p.Category, p.Price, p.Color,
	).Scan(&p.ID)
}

func (r *productRepo) UpdateProduct(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	res, err := execNode(r.db, tx).ExecContext(ctx, `
		UPDATE products SET name = $2, category = $3, price = $4, color = $5
		WHERE id = $1`,
		p.ID, p.Name, p.Category, p.Price, p.Color,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *productRepo) DeleteProduct(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := execNode(r.db, tx).ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
