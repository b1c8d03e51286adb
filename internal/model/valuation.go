package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionValuation is the value of a single holding at the current quote.
// When the quote could not be obtained, Stale is set, Price and Value are zero,
// and the position is excluded from the portfolio total.
type PositionValuation struct {
	Symbol         string           `json:"symbol"`
	Shares         int64            `json:"shares"`
	AveragePrice   decimal.Decimal  `json:"averagePrice"`
	CostBasis      decimal.Decimal  `json:"costBasis"`
	Price          decimal.Decimal  `json:"price"`
	Value          decimal.Decimal  `json:"value"`
	Stale          bool             `json:"stale"`
	LastKnownPrice *decimal.Decimal `json:"lastKnownPrice,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// Valuation is the valuation of a whole account.
// Total is cash plus the value of every position that could be priced.
type Valuation struct {
	AccountID     string              `json:"accountId"`
	Cash          decimal.Decimal     `json:"cash"`
	HoldingsValue decimal.Decimal     `json:"holdingsValue"`
	Total         decimal.Decimal     `json:"total"`
	Positions     []PositionValuation `json:"positions"`
	Partial       bool                `json:"partial"`
	Unavailable   []string            `json:"unavailable,omitempty"`
	ValuedAt      time.Time           `json:"valuedAt"`
}
