// Package checkout turns an account's cart into a persisted order across the
// identity and order services.
//
// The order is always created before the cart is cleared. Any failure up to
// and including order creation leaves the cart untouched; a failure to clear
// the cart afterwards is reported as domain.ErrCartNotCleared alongside the
// created order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"microshop/internal/domain"
)

// DateLayout is how the confirmation date is rendered.
const DateLayout = "02-01-2006 15:04"

type CartStore interface {
	RetrieveCart(ctx context.Context, p domain.Principal) ([]domain.CartLine, error)
	ClearCart(ctx context.Context, p domain.Principal) (int64, error)
}

type AccountFetcher interface {
	FetchAccount(ctx context.Context, accountID int64, token string) (domain.AccountSnapshot, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, draft domain.OrderDraft, token, idempotencyKey string) (domain.Order, error)
}

const (
	StepCollectCart      = "collect_cart"
	StepResolveAddressee = "resolve_addressee"
	StepComputeTotal     = "compute_total"
	StepPersistOrder     = "persist_order"
	StepClearCart        = "clear_cart"
)

type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

type Step struct {
	Name   string
	Status StepStatus
	Err    error
}

type Request struct {
	Principal domain.Principal
	// Token is forwarded to the identity and order services.
	Token string
	// IdempotencyKey, when set, lets the order service recognise a retry.
	IdempotencyKey string
}

type Result struct {
	// Empty is set when the cart had no lines; nothing else was done.
	Empty   bool
	Message string
	Total   decimal.Decimal
	Order   *domain.Order
	Steps   []Step
}

func (r *Result) record(name string, err error) {
	status := StepDone
	if err != nil {
		status = StepFailed
	}
	r.Steps = append(r.Steps, Step{Name: name, Status: status, Err: err})
}

func (r *Result) skip(names ...string) {
	for _, n := range names {
		r.Steps = append(r.Steps, Step{Name: n, Status: StepSkipped})
	}
}

type Orchestrator struct {
	cart     CartStore
	accounts AccountFetcher
	orders   OrderCreator
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrchestrator(cart CartStore, accounts AccountFetcher, orders OrderCreator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cart:     cart,
		accounts: accounts,
		orders:   orders,
		logger:   logger,
		now:      time.Now,
	}
}

// EmptyCartMessage is returned when there is nothing to confirm.
func EmptyCartMessage(identity string) string {
	return identity + ", your shopping cart is empty.\n" +
		"Please, add some products to your shopping cart in order to make an order."
}

// Confirm runs the checkout for req.Principal. The returned Result is never
// nil, also on error, and carries the step trail.
func (o *Orchestrator) Confirm(ctx context.Context, req Request) (*Result, error) {
	p := req.Principal
	res := &Result{}
	defer o.logSteps(p, res)

	lines, err := o.cart.RetrieveCart(ctx, p)
	res.record(StepCollectCart, err)
	if err != nil {
		res.skip(StepResolveAddressee, StepComputeTotal, StepPersistOrder, StepClearCart)
		return res, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		res.Empty = true
		res.Total = decimal.Zero
		res.Message = EmptyCartMessage(p.Identity)
		res.skip(StepResolveAddressee, StepComputeTotal, StepPersistOrder, StepClearCart)
		return res, nil
	}

	account, err := o.accounts.FetchAccount(ctx, p.AccountID, req.Token)
	res.record(StepResolveAddressee, err)
	if err != nil {
		res.skip(StepComputeTotal, StepPersistOrder, StepClearCart)
		return res, fmt.Errorf("resolve addressee: %w", err)
	}

	date := o.now()
	res.Total = domain.CartTotal(lines)
	res.Message = confirmationMessage(date, account, lines, res.Total)
	res.record(StepComputeTotal, nil)

	draft := domain.OrderDraft{
		AccountID: p.AccountID,
		Addressee: strings.TrimSpace(account.Name + " " + account.Surname),
		Address:   account.Address,
		TotalCost: res.Total,
		Date:      date,
		Lines:     lines,
	}
	// Once issued the order call runs to completion even if the caller
	// goes away.
	order, err := o.orders.CreateOrder(context.WithoutCancel(ctx), draft, req.Token, req.IdempotencyKey)
	res.record(StepPersistOrder, err)
	if err != nil {
		res.skip(StepClearCart)
		return res, fmt.Errorf("persist order: %w", err)
	}
	res.Order = &order

	_, err = o.cart.ClearCart(context.WithoutCancel(ctx), p)
	res.record(StepClearCart, err)
	if err != nil {
		return res, errors.Join(domain.ErrCartNotCleared, err)
	}

	return res, nil
}

func (o *Orchestrator) logSteps(p domain.Principal, res *Result) {
	attrs := make([]any, 0, len(res.Steps)+2)
	attrs = append(attrs, slog.Int64("account_id", p.AccountID))
	if res.Order != nil {
		attrs = append(attrs, slog.Int64("order_id", res.Order.ID))
	}
	failed := false
	for _, s := range res.Steps {
		v := string(s.Status)
		if s.Err != nil {
			v += ": " + s.Err.Error()
			failed = true
		}
		attrs = append(attrs, slog.String(s.Name, v))
	}
	if failed {
		o.logger.Warn("checkout failed", attrs...)
		return
	}
	o.logger.Info("checkout finished", attrs...)
}

func confirmationMessage(date time.Time, account domain.AccountSnapshot, lines []domain.CartLine, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("Cart confirmed with the following details: \n")
	fmt.Fprintf(&b, "\t-> Date: %s\n", date.Format(DateLayout))
	fmt.Fprintf(&b, "\t-> Addressee: %s %s\n", account.Name, account.Surname)
	fmt.Fprintf(&b, "\t-> Address: %s\n", account.Address)
	b.WriteString("\t-> Products: \n")
	for _, l := range lines {
		fmt.Fprintf(&b, "\t\t%dx %s (#ref %d): %s euro(s) \n", l.Quantity, l.Name, l.ProductID, l.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\t-> Total cost: %s euro(s) \n", total.StringFixed(2))
	return b.String()
}
