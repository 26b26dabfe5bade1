package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"microshop/internal/domain"
	"microshop/internal/events"
	"microshop/internal/repo"
)

type OrderService interface {
	// CreateOrder persists draft for its account. With a non-empty
	// idempotencyKey a repeated call returns the first order and created
	// is false.
	CreateOrder(ctx context.Context, p domain.Principal, draft domain.OrderDraft, idempotencyKey string) (order *domain.Order, created bool, err error)
	ListOrders(ctx context.Context, p domain.Principal) ([]domain.Order, error)
	GetOrder(ctx context.Context, p domain.Principal, id int64) (*domain.Order, error)
	DeleteOrders(ctx context.Context, p domain.Principal) (int64, error)
}

type orderService struct {
	tx        repo.Transactor
	orderRepo repo.OrderRepo
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrderService(
	tx repo.Transactor,
	orderRepo repo.OrderRepo,
	publisher events.Publisher,
	logger *slog.Logger,
) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &orderService{
		tx:        tx,
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, p domain.Principal, draft domain.OrderDraft, idempotencyKey string) (*domain.Order, bool, error) {
	if draft.AccountID == 0 {
		draft.AccountID = p.AccountID
	}
	if !p.CanAccess(draft.AccountID) {
		return nil, false, fmt.Errorf("%w: order for account %d", domain.ErrForbidden, draft.AccountID)
	}
	if strings.TrimSpace(draft.Addressee) == "" {
		return nil, false, fmt.Errorf("%w: missing addressee", domain.ErrInvalidInput)
	}
	if draft.TotalCost.IsNegative() {
		return nil, false, fmt.Errorf("%w: negative total cost", domain.ErrInvalidInput)
	}
	if draft.Date.IsZero() {
		draft.Date = s.now()
	}

	order := &domain.Order{
		AccountID:      draft.AccountID,
		Addressee:      draft.Addressee,
		Address:        draft.Address,
		TotalCost:      draft.TotalCost,
		Date:           draft.Date,
		IdempotencyKey: idempotencyKey,
	}

	created := true
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if idempotencyKey != "" {
			existing, err := s.replay(ctx, tx, idempotencyKey, order.AccountID)
			if err == nil {
				order, created = existing, false
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		return s.orderRepo.CreateOrder(ctx, tx, order)
	})
	// A concurrent request with the same key won the insert.
	if errors.Is(err, domain.ErrConflict) && idempotencyKey != "" {
		existing, rerr := s.replay(ctx, nil, idempotencyKey, order.AccountID)
		if rerr == nil {
			return existing, false, nil
		}
		if !errors.Is(rerr, domain.ErrNotFound) {
			err = rerr
		}
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		if perr := s.publisher.PublishOrderCreated(ctx, *order); perr != nil {
			s.logger.Error("publish order.created failed",
				slog.Int64("order_id", order.ID),
				slog.Any("error", perr))
		}
	}
	return order, created, nil
}

// replay returns the order stored under key, refusing keys that belong to a
// different account.
func (s *orderService) replay(ctx context.Context, tx *sql.Tx, key string, accountID int64) (*domain.Order, error) {
	existing, err := s.orderRepo.FindByIdempotencyKey(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if existing.AccountID != accountID {
		return nil, fmt.Errorf("idempotency key %q used by another account: %w", key, domain.ErrConflict)
	}
	return existing, nil
}

func (s *orderService) ListOrders(ctx context.Context, p domain.Principal) ([]domain.Order, error) {
	return s.orderRepo.FindByAccount(ctx, p.AccountID)
}

func (s *orderService) GetOrder(ctx context.Context, p domain.Principal, id int64) (*domain.Order, error) {
	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.AccountID != p.AccountID {
		return nil, fmt.Errorf("%w: order %d", domain.ErrForbidden, id)
	}
	return order, nil
}

func (s *orderService) DeleteOrders(ctx context.Context, p domain.Principal) (int64, error) {
	return s.orderRepo.DeleteByAccount(ctx, nil, p.AccountID)
}
