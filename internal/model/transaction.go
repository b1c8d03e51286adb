package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one executed trade in the append-only ledger.
// Shares is signed: positive for a buy, negative for a sell.
// Seq defines the total order of the ledger.
type Transaction struct {
	Seq        int64           `json:"seq"`
	ID         string          `json:"id"`
	AccountID  string          `json:"accountId"`
	Symbol     string          `json:"symbol"`
	Shares     int64           `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	ExecutedAt time.Time       `json:"executedAt"`
}

// IsBuy reports whether the transaction added shares.
func (t Transaction) IsBuy() bool {
	return t.Shares > 0
}

// CashFlow returns the signed cash movement caused by the transaction:
// negative for buys, positive for sells.
func (t Transaction) CashFlow() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares)).Neg()
}

// TransactionPage is a page of the ledger, oldest first.
// NextCursor is empty when there are no further transactions.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	NextCursor   string        `json:"nextCursor,omitempty"`
}
