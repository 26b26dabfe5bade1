package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderDraft is what the cart service asks the order service to persist.
type OrderDraft struct {
	AccountID int64           `json:"accountId"`
	Addressee string          `json:"addressee"`
	Address   string          `json:"address"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Date      time.Time       `json:"date"`
	Lines     []CartLine      `json:"lines,omitempty"`
}

// Order is owned by the order service once created. Only the aggregate is
// persisted; Lines travel with the draft for the confirmation message.
type Order struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"accountId"`
	Addressee      string          `json:"addressee"`
	Address        string          `json:"address"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	Date           time.Time       `json:"date"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
}
