// Command simulate drives many checkouts against a real Postgres with an
// unreliable link to the order service, then audits orders and carts.
//
// Some order calls fail before anything is written, others persist the order
// and lose the response. Each checkout is retried with one idempotency key,
// so no account may end up with more than one order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"microshop/internal/checkout"
	"microshop/internal/config"
	"microshop/internal/database"
	"microshop/internal/domain"
	"microshop/internal/repo"
	"microshop/internal/service"
)

var errLinkDown = errors.New("order service unreachable")

// catalogueLink serves product snapshots from the local catalogue.
type catalogueLink struct {
	catalogue service.CatalogueService
}

func (l catalogueLink) FetchProduct(ctx context.Context, id int64) (domain.ProductSnapshot, error) {
	p, err := l.catalogue.GetProduct(ctx, id)
	if err != nil {
		return domain.ProductSnapshot{}, err
	}
	return p.Snapshot(), nil
}

type identityLink struct{}

func (identityLink) FetchAccount(_ context.Context, accountID int64, _ string) (domain.AccountSnapshot, error) {
	return domain.AccountSnapshot{
		Name:    "Customer",
		Surname: fmt.Sprintf("#%d", accountID),
		Address: fmt.Sprintf("%d Simulation Street", accountID),
	}, nil
}

// flakyOrderLink fails dropRate of calls before the order is written and
// loseRate of calls after it is written.
type flakyOrderLink struct {
	orders   service.OrderService
	dropRate float64
	loseRate float64
	dropped  int
	lost     int
}

func (l *flakyOrderLink) CreateOrder(ctx context.Context, draft domain.OrderDraft, _ string, key string) (domain.Order, error) {
	if rand.Float64() < l.dropRate {
		l.dropped++
		return domain.Order{}, errLinkDown
	}
	p := domain.Principal{Identity: "sim", AccountID: draft.AccountID, Role: domain.RoleUser}
	order, _, err := l.orders.CreateOrder(ctx, p, draft, key)
	if err != nil {
		return domain.Order{}, err
	}
	if rand.Float64() < l.loseRate {
		l.lost++
		return domain.Order{}, errLinkDown
	}
	return *order, nil
}

func main() {
	accounts := flag.Int("accounts", 20, "number of simulated customers")
	attempts := flag.Int("attempts", 3, "confirm attempts per customer")
	dropRate := flag.Float64("drop", 0.2, "share of order calls failing before persisting")
	loseRate := flag.Float64("lose", 0.2, "share of order calls losing the response after persisting")
	noKeys := flag.Bool("no-idempotency", false, "retry without idempotency keys")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *accounts, *attempts, *dropRate, *loseRate, !*noKeys); err != nil {
		logger.Error("simulation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, accounts, attempts int, dropRate, loseRate float64, useKeys bool) error {
	cfg, err := config.Load("simulate")
	if err != nil {
		return err
	}
	db, err := database.NewPostgres(ctx, cfg.DB, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db,
		database.ProductsSchema,
		database.CartLinesSchema,
		database.OrdersSchema,
		database.OrdersAccountIndex,
	); err != nil {
		return err
	}

	catalogue := service.NewCatalogueService(repo.NewProductRepo(db))
	if _, err := catalogue.SeedCatalogue(ctx,
		domain.Product{Name: "Mug", Category: "kitchen", Price: decimal.RequireFromString("2.00"), Color: "red"},
		domain.Product{Name: "Pan", Category: "kitchen", Price: decimal.RequireFromString("5.00"), Color: "black"},
		domain.Product{Name: "Hat", Category: "clothes", Price: decimal.RequireFromString("9.50"), Color: "blue"},
	); err != nil {
		return err
	}
	products, err := catalogue.ListProducts(ctx)
	if err != nil {
		return err
	}

	orderRepo := repo.NewOrderRepo(db)
	orders := service.NewOrderService(repo.NewTransactor(db), orderRepo, nil, logger)
	link := &flakyOrderLink{orders: orders, dropRate: dropRate, loseRate: loseRate}
	cart := service.NewCartService(repo.NewCartRepo(db), catalogueLink{catalogue: catalogue})
	orchestrator := checkout.NewOrchestrator(cart, identityLink{}, link, logger)

	// Accounts are numbered above any previous run's so audits stay per run.
	base := int64(rand.IntN(1_000_000)) * 1000

	fmt.Printf("--- STARTING SIMULATION (%d CHECKOUTS, idempotency=%v) ---\n", accounts, useKeys)
	for i := range accounts {
		p := domain.Principal{Identity: fmt.Sprintf("customer-%d", i+1), AccountID: base + int64(i+1), Role: domain.RoleUser}

		for range 1 + rand.IntN(4) {
			product := products[rand.IntN(len(products))]
			if err := cart.AddItem(ctx, p, product.ID); err != nil {
				return err
			}
		}

		key := ""
		if useKeys {
			key = uuid.NewString()
		}
		fmt.Printf("[%d] account %d ... ", i+1, p.AccountID)
		var confirmErr error
		for attempt := 1; attempt <= attempts; attempt++ {
			_, confirmErr = orchestrator.Confirm(ctx, checkout.Request{Principal: p, IdempotencyKey: key})
			if confirmErr == nil {
				fmt.Printf("CONFIRMED after %d attempt(s)\n", attempt)
				break
			}
		}
		if confirmErr != nil {
			fmt.Printf("GAVE UP: %v\n", confirmErr)
		}
	}

	fmt.Println("--- AUDIT ---")
	var duplicates, stuck int
	for i := range accounts {
		p := domain.Principal{AccountID: base + int64(i+1)}
		placed, err := orderRepo.FindByAccount(ctx, p.AccountID)
		if err != nil {
			return err
		}
		lines, err := cart.RetrieveCart(ctx, p)
		if err != nil {
			return err
		}
		if len(placed) > 1 {
			duplicates++
			fmt.Printf("account %d: %d orders for one cart\n", p.AccountID, len(placed))
		}
		if len(lines) > 0 && len(placed) > 0 {
			stuck++
			fmt.Printf("account %d: order placed but cart still holds %d line(s)\n", p.AccountID, len(lines))
		}
	}
	fmt.Printf("dropped calls: %d, lost responses: %d, duplicate orders: %d, uncleared carts: %d\n",
		link.dropped, link.lost, duplicates, stuck)
	return nil
}
