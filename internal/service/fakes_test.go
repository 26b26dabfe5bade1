package service

import (
	"context"
	"database/sql"

	"microshop/internal/domain"
)

type noTx struct{}

func (noTx) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type fakeAccountRepo struct {
	findById       func(id int64) (*domain.Account, error)
	findByUsername func(username string) (*domain.Account, error)
	created        []*domain.Account
	createErr      error
	updated        []*domain.Account
	updateErr      error
	deleted        []int64
}

func (f *fakeAccountRepo) FindById(_ context.Context, id int64) (*domain.Account, error) {
	if f.findById == nil {
		return nil, domain.ErrNotFound
	}
	return f.findById(id)
}

func (f *fakeAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	if f.findByUsername == nil {
		return nil, domain.ErrNotFound
	}
	return f.findByUsername(username)
}

func (f *fakeAccountRepo) CreateAccount(_ context.Context, _ *sql.Tx, a *domain.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	a.ID = int64(len(f.created) + 1)
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAccountRepo) UpdateAccount(_ context.Context, _ *sql.Tx, a *domain.Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, a)
	return nil
}

func (f *fakeAccountRepo) DeleteAccount(_ context.Context, _ *sql.Tx, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type issuedToken struct {
	identity  string
	accountID int64
	role      domain.Role
}

type fakeIssuer struct {
	issued []issuedToken
}

func (f *fakeIssuer) Issue(identity string, accountID int64, role domain.Role) (string, error) {
	f.issued = append(f.issued, issuedToken{identity, accountID, role})
	return "token-" + identity, nil
}

type fakeProductRepo struct {
	products map[int64]domain.Product
	nextID   int64
}

func newFakeProductRepo(ps ...domain.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: map[int64]domain.Product{}}
	for _, p := range ps {
		f.products[p.ID] = p
		f.nextID = max(f.nextID, p.ID)
	}
	return f
}

func (f *fakeProductRepo) FindById(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProductRepo) FindAll(context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductRepo) filter(keep func(domain.Product) bool) []domain.Product {
	var out []domain.Product
	for _, p := range f.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeProductRepo) FindByCategory(_ context.Context, category string) ([]domain.Product, error) {
	return f.filter(func(p domain.Product) bool { return p.Category == category }), nil
}

func (f *fakeProductRepo) FindByColor(_ context.Context, color string) ([]domain.Product, error) {
	return f.filter(func(p domain.Product) bool { return p.Color == color }), nil
}

func (f *fakeProductRepo) Categories(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range f.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) CreateProduct(_ context.Context, _ *sql.Tx, p *domain.Product) error {
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = *p
	return nil
}

func (f *fakeProductRepo) UpdateProduct(_ context.Context, _ *sql.Tx, p *domain.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	f.products[p.ID] = *p
	return nil
}

func (f *fakeProductRepo) DeleteProduct(_ context.Context, _ *sql.Tx, id int64) error {
	if _, ok := f.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

type fakeOrderRepo struct {
	orders    []domain.Order
	createErr error
	// beforeCreate simulates a competing writer.
	beforeCreate func()
}

func (f *fakeOrderRepo) FindById(_ context.Context, id int64) (*domain.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) FindByAccount(_ context.Context, accountID int64) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.AccountID == accountID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) FindByIdempotencyKey(_ context.Context, _ *sql.Tx, key string) (*domain.Order, error) {
	for _, o := range f.orders {
		if o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, _ *sql.Tx, o *domain.Order) error {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	if f.createErr != nil {
		return f.createErr
	}
	if o.IdempotencyKey != "" {
		for _, existing := range f.orders {
			if existing.IdempotencyKey == o.IdempotencyKey {
				return domain.ErrConflict
			}
		}
	}
	o.ID = int64(len(f.orders) + 1)
	f.orders = append(f.orders, *o)
	return nil
}

func (f *fakeOrderRepo) DeleteByAccount(_ context.Context, _ *sql.Tx, accountID int64) (int64, error) {
	var kept []domain.Order
	var n int64
	for _, o := range f.orders {
		if o.AccountID == accountID {
			n++
			continue
		}
		kept = append(kept, o)
	}
	f.orders = kept
	return n, nil
}

type fakePublisher struct {
	published []domain.Order
	err       error
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, o domain.Order) error {
	f.published = append(f.published, o)
	return f.err
}

type lineKey struct{ account, product int64 }

type fakeCartRepo struct {
	lines        map[lineKey]domain.CartLine
	order        []lineKey
	incrementErr error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{lines: map[lineKey]domain.CartLine{}}
}

func (f *fakeCartRepo) FindByAccount(_ context.Context, accountID int64) ([]domain.CartLine, error) {
	var out []domain.CartLine
	for _, k := range f.order {
		if l, ok := f.lines[k]; ok && k.account == accountID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) FindLine(_ context.Context, accountID, productID int64) (*domain.CartLine, error) {
	l, ok := f.lines[lineKey{accountID, productID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (f *fakeCartRepo) InsertLine(_ context.Context, _ *sql.Tx, line domain.CartLine) error {
	k := lineKey{line.AccountID, line.ProductID}
	if l, ok := f.lines[k]; ok {
		l.Quantity++
		f.lines[k] = l
		return nil
	}
	f.lines[k] = line
	f.order = append(f.order, k)
	return nil
}

func (f *fakeCartRepo) IncrementQuantity(_ context.Context, _ *sql.Tx, accountID, productID int64) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	k := lineKey{accountID, productID}
	l, ok := f.lines[k]
	if !ok {
		return domain.ErrNotFound
	}
	l.Quantity++
	f.lines[k] = l
	return nil
}

func (f *fakeCartRepo) DeleteByAccount(_ context.Context, _ *sql.Tx, accountID int64) (int64, error) {
	var n int64
	var kept []lineKey
	for _, k := range f.order {
		if k.account == accountID {
			delete(f.lines, k)
			n++
			continue
		}
		kept = append(kept, k)
	}
	f.order = kept
	return n, nil
}

type fakeProducts struct {
	snapshots map[int64]domain.ProductSnapshot
	err       error
	calls     int
}

func (f *fakeProducts) FetchProduct(_ context.Context, id int64) (domain.ProductSnapshot, error) {
	f.calls++
	if f.err != nil {
		return domain.ProductSnapshot{}, f.err
	}
	s, ok := f.snapshots[id]
	if !ok {
		return domain.ProductSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}
