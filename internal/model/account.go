package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a registered holder of cash and equity positions.
// Cash is never negative; it is mutated only by the portfolio engine.
type Account struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Cash        decimal.Decimal `json:"cash"`
	InitialCash decimal.Decimal `json:"initialCash"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CashResponse is returned by the cash endpoint.
type CashResponse struct {
	AccountID string          `json:"accountId"`
	Cash      decimal.Decimal `json:"cash"`
}
