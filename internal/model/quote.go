package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the current price of a symbol as reported by a quote provider.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	QuotedAt time.Time       `json:"quotedAt"`
}
