package request

import "github.com/shopspring/decimal"

// CreateAccountRequest registers a new account.
// Cash is optional; the configured default deposit is used when omitted.
type CreateAccountRequest struct {
	Username string           `json:"username"`
	Cash     *decimal.Decimal `json:"cash,omitempty"`
}

// OrderRequest is the body of a buy or sell order.
type OrderRequest struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}
