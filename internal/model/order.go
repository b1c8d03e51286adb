package model

import "github.com/shopspring/decimal"

// OrderResult is returned after a buy or sell has been committed.
// Holding is nil when a sell closed the position.
type OrderResult struct {
	Cash        decimal.Decimal `json:"cash"`
	Holding     *Holding        `json:"holding"`
	Transaction Transaction     `json:"transaction"`
}
