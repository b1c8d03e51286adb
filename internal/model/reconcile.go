package model

import "github.com/shopspring/decimal"

// Discrepancy describes a disagreement between the ledger and the stored state of an account.
type Discrepancy struct {
	AccountID string          `json:"accountId"`
	Symbol    string          `json:"symbol,omitempty"`
	Kind      string          `json:"kind"`
	Expected  decimal.Decimal `json:"expected"`
	Actual    decimal.Decimal `json:"actual"`
}

// Discrepancy kinds.
const (
	DiscrepancyShares = "shares"
	DiscrepancyCash   = "cash"
)

// ReconcileReport summarises a reconciliation run.
type ReconcileReport struct {
	AccountsChecked int           `json:"accountsChecked"`
	Discrepancies   []Discrepancy `json:"discrepancies"`
}

// Consistent reports whether the run found no discrepancies.
func (r ReconcileReport) Consistent() bool {
	return len(r.Discrepancies) == 0
}
