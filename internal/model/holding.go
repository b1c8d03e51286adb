package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents the aggregated position in one symbol for one account.
// A holding never exists with zero shares; the row is removed instead.
type Holding struct {
	AccountID    string           `json:"accountId"`
	Symbol       string           `json:"symbol"`
	Shares       int64            `json:"shares"`
	AveragePrice decimal.Decimal  `json:"averagePrice"`
	CostBasis    decimal.Decimal  `json:"costBasis"`
	LastPrice    *decimal.Decimal `json:"lastPrice,omitempty"`
	LastPricedAt *time.Time       `json:"lastPricedAt,omitempty"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
