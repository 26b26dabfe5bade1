package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"microshop/internal/domain"
	"microshop/internal/repo"
)

type ProductInput struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Color    string          `json:"color"`
}

type CatalogueService interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Product, error)
	ListByColor(ctx context.Context, color string) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	// SeedCatalogue inserts products only when the catalogue is empty and
	// returns how many were inserted.
	SeedCatalogue(ctx context.Context, products ...domain.Product) (int, error)
}

type catalogueService struct {
	productRepo repo.ProductRepo
}

func NewCatalogueService(productRepo repo.ProductRepo) CatalogueService {
	return &catalogueService{productRepo: productRepo}
}

func (s *catalogueService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.FindById(ctx, id)
}

func (s *catalogueService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.productRepo.FindAll(ctx)
}

func (s *catalogueService) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.productRepo.FindByCategory(ctx, strings.TrimSpace(category))
}

func (s *catalogueService) ListByColor(ctx context.Context, color string) ([]domain.Product, error) {
	return s.productRepo.FindByColor(ctx, strings.TrimSpace(color))
}

func (s *catalogueService) Categories(ctx context.Context) ([]string, error) {
	return s.productRepo.Categories(ctx)
}

func (s *catalogueService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.CreateProduct(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *catalogueService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.productRepo.UpdateProduct(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *catalogueService) DeleteProduct(ctx context.Context, id int64) error {
	return s.productRepo.DeleteProduct(ctx, nil, id)
}

func (in ProductInput) product() (*domain.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: missing name", domain.ErrInvalidInput)
	}
	price := in.Price
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: negative price", domain.ErrInvalidInput)
	}
	return &domain.Product{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Price:    price,
		Color:    strings.TrimSpace(in.Color),
	}, nil
}

func (s *catalogueService) SeedCatalogue(ctx context.Context, products ...domain.Product) (int, error) {
	existing, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i := range products {
		p := products[i]
		if err := s.productRepo.CreateProduct(ctx, nil, &p); err != nil {
			return i, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
	}
	return len(products), nil
}
