package service

import (
	"context"
	"errors"
	"fmt"

	"microshop/internal/domain"
	"microshop/internal/repo"
)

// ProductFetcher reads a product from the catalogue service.
type ProductFetcher interface {
	FetchProduct(ctx context.Context, productID int64) (domain.ProductSnapshot, error)
}

type CartService interface {
	RetrieveCart(ctx context.Context, p domain.Principal) ([]domain.CartLine, error)
	// AddItem puts one unit of productID in the caller's cart. The product
	// is fetched only when the cart has no line for it yet.
	AddItem(ctx context.Context, p domain.Principal, productID int64) error
	ClearCart(ctx context.Context, p domain.Principal) (int64, error)
}

type cartService struct {
	cartRepo repo.CartRepo
	products ProductFetcher
}

func NewCartService(cartRepo repo.CartRepo, products ProductFetcher) CartService {
	return &cartService{cartRepo: cartRepo, products: products}
}

func (s *cartService) RetrieveCart(ctx context.Context, p domain.Principal) ([]domain.CartLine, error) {
	return s.cartRepo.FindByAccount(ctx, p.AccountID)
}

func (s *cartService) AddItem(ctx context.Context, p domain.Principal, productID int64) error {
	if productID <= 0 {
		return fmt.Errorf("%w: product id %d", domain.ErrInvalidInput, productID)
	}

	_, err := s.cartRepo.FindLine(ctx, p.AccountID, productID)
	switch {
	case err == nil:
		err = s.cartRepo.IncrementQuantity(ctx, nil, p.AccountID, productID)
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		// line removed since FindLine; add it fresh
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	snapshot, err := s.products.FetchProduct(ctx, productID)
	if err != nil {
		return err
	}
	return s.cartRepo.InsertLine(ctx, nil, domain.CartLine{
		ProductID: snapshot.ID,
		AccountID: p.AccountID,
		Name:      snapshot.Name,
		UnitPrice: snapshot.Price,
		Quantity:  1,
	})
}

func (s *cartService) ClearCart(ctx context.Context, p domain.Principal) (int64, error) {
	return s.cartRepo.DeleteByAccount(ctx, nil, p.AccountID)
}
