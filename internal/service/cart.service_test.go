package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microshop/internal/domain"
)

func mugCatalogue() *fakeProducts {
	return &fakeProducts{snapshots: map[int64]domain.ProductSnapshot{
		10: {ID: 10, Name: "Mug", Price: decimal.RequireFromString("2.00")},
	}}
}

func TestAddItem_SameProductTwice(t *testing.T) {
	carts := newFakeCartRepo()
	products := mugCatalogue()
	svc := NewCartService(carts, products)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, alicePrincipal, 10))

	// a later price change in the catalogue must not touch the stored line
	products.snapshots[10] = domain.ProductSnapshot{ID: 10, Name: "Mug", Price: decimal.RequireFromString("9.99")}
	require.NoError(t, svc.AddItem(ctx, alicePrincipal, 10))

	lines, err := svc.RetrieveCart(ctx, alicePrincipal)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("2.00")))
	assert.Equal(t, 1, products.calls)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	carts := newFakeCartRepo()
	svc := NewCartService(carts, mugCatalogue())

	err := svc.AddItem(context.Background(), alicePrincipal, 77)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	lines, _ := carts.FindByAccount(context.Background(), alicePrincipal.AccountID)
	assert.Empty(t, lines)
}

func TestAddItem_CatalogueDown(t *testing.T) {
	products := mugCatalogue()
	products.err = domain.ErrServiceUnavailable
	svc := NewCartService(newFakeCartRepo(), products)

	err := svc.AddItem(context.Background(), alicePrincipal, 10)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestAddItem_LineVanishedBeforeIncrement(t *testing.T) {
	carts := newFakeCartRepo()
	carts.lines[lineKey{3, 10}] = domain.CartLine{AccountID: 3, ProductID: 10, Quantity: 1}
	carts.incrementErr = domain.ErrNotFound
	products := mugCatalogue()
	svc := NewCartService(carts, products)

	require.NoError(t, svc.AddItem(context.Background(), alicePrincipal, 10))
	assert.Equal(t, 1, products.calls)
}

func TestAddItem_InvalidID(t *testing.T) {
	svc := NewCartService(newFakeCartRepo(), mugCatalogue())
	assert.ErrorIs(t, svc.AddItem(context.Background(), alicePrincipal, 0), domain.ErrInvalidInput)
}

func TestClearCart_OnlyCallersLines(t *testing.T) {
	carts := newFakeCartRepo()
	products := mugCatalogue()
	svc := NewCartService(carts, products)
	ctx := context.Background()
	bob := domain.Principal{Identity: "bob", AccountID: 4, Role: domain.RoleUser}

	require.NoError(t, svc.AddItem(ctx, alicePrincipal, 10))
	require.NoError(t, svc.AddItem(ctx, bob, 10))

	n, err := svc.ClearCart(ctx, alicePrincipal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	bobLines, err := svc.RetrieveCart(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, bobLines, 1)
}
