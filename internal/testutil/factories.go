package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/repository"
)

// AccountBuilder provides a fluent interface for creating test accounts.
//
// Example usage:
//
//	// Simple creation with defaults (10000.00 cash)
//	account := testutil.NewAccount().Build(t, db)
//
//	// Customized account
//	account := testutil.NewAccount().
//	    WithUsername("alice").
//	    WithCash("1000").
//	    Build(t, db)
type AccountBuilder struct {
	ID          string
	Username    string
	Cash        decimal.Decimal
	InitialCash decimal.Decimal
	CreatedAt   time.Time
}

// NewAccount creates an AccountBuilder with sensible defaults.
func NewAccount() *AccountBuilder {
	cash := decimal.RequireFromString("10000.00")
	return &AccountBuilder{
		ID:          MakeID(),
		Username:    MakeUsername("user"),
		Cash:        cash,
		InitialCash: cash,
		CreatedAt:   time.Now().UTC(),
	}
}

// WithID sets a custom ID.
func (b *AccountBuilder) WithID(id string) *AccountBuilder {
	b.ID = id
	return b
}

// WithUsername sets a custom username.
func (b *AccountBuilder) WithUsername(username string) *AccountBuilder {
	b.Username = username
	return b
}

// WithCash sets both the cash balance and the initial deposit.
func (b *AccountBuilder) WithCash(cash string) *AccountBuilder {
	b.Cash = decimal.RequireFromString(cash)
	b.InitialCash = b.Cash
	return b
}

// WithInitialCash sets the initial deposit only, leaving the balance as is.
func (b *AccountBuilder) WithInitialCash(cash string) *AccountBuilder {
	b.InitialCash = decimal.RequireFromString(cash)
	return b
}

// Build creates the account in the database and returns it.
func (b *AccountBuilder) Build(t *testing.T, db *sql.DB) model.Account {
	t.Helper()

	query := `
		INSERT INTO account (id, username, cash, initial_cash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.Username, b.Cash.String(), b.InitialCash.String(), repository.FormatTime(b.CreatedAt))
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	return model.Account{
		ID:          b.ID,
		Username:    b.Username,
		Cash:        b.Cash,
		InitialCash: b.InitialCash,
		CreatedAt:   b.CreatedAt,
	}
}

// CreateAccount creates an account holding the given cash.
//
// Example usage:
//
//	account := testutil.CreateAccount(t, db, "1000")
func CreateAccount(t *testing.T, db *sql.DB, cash string) model.Account {
	t.Helper()
	return NewAccount().WithCash(cash).Build(t, db)
}

// HoldingBuilder provides a fluent interface for creating test holdings.
// Holdings built this way have no matching ledger rows; use it for read paths
// such as valuation, not for reconciliation.
//
// Example usage:
//
//	holding := testutil.NewHolding(account.ID, "ABC").
//	    WithShares(10).
//	    WithAveragePrice("20").
//	    Build(t, db)
type HoldingBuilder struct {
	AccountID    string
	Symbol       string
	Shares       int64
	AveragePrice decimal.Decimal
	LastPrice    *decimal.Decimal
	UpdatedAt    time.Time
}

// NewHolding creates a HoldingBuilder with sensible defaults.
func NewHolding(accountID, symbol string) *HoldingBuilder {
	return &HoldingBuilder{
		AccountID:    accountID,
		Symbol:       symbol,
		Shares:       10,
		AveragePrice: decimal.RequireFromString("20"),
		UpdatedAt:    time.Now().UTC(),
	}
}

// WithShares sets the share count.
func (b *HoldingBuilder) WithShares(shares int64) *HoldingBuilder {
	b.Shares = shares
	return b
}

// WithAveragePrice sets the average purchase price.
func (b *HoldingBuilder) WithAveragePrice(price string) *HoldingBuilder {
	b.AveragePrice = decimal.RequireFromString(price)
	return b
}

// WithLastPrice sets the last known market price.
func (b *HoldingBuilder) WithLastPrice(price string) *HoldingBuilder {
	p := decimal.RequireFromString(price)
	b.LastPrice = &p
	return b
}

// Build creates the holding in the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.Holding {
	t.Helper()

	costBasis := b.AveragePrice.Mul(decimal.NewFromInt(b.Shares))

	var lastPrice, lastPricedAt any
	if b.LastPrice != nil {
		lastPrice = b.LastPrice.String()
		lastPricedAt = repository.FormatTime(b.UpdatedAt)
	}

	query := `
		INSERT INTO holding (account_id, symbol, shares, avg_price, cost_basis, last_price, last_priced_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.AccountID,
		b.Symbol,
		b.Shares,
		b.AveragePrice.String(),
		costBasis.String(),
		lastPrice,
		lastPricedAt,
		repository.FormatTime(b.UpdatedAt),
	)
	if err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}

	return model.Holding{
		AccountID:    b.AccountID,
		Symbol:       b.Symbol,
		Shares:       b.Shares,
		AveragePrice: b.AveragePrice,
		CostBasis:    costBasis,
		LastPrice:    b.LastPrice,
		UpdatedAt:    b.UpdatedAt,
	}
}

// TransactionBuilder provides a fluent interface for creating test ledger rows.
// Only the ledger is written; cash and holdings are left untouched.
//
// Example usage:
//
//	tx := testutil.NewTransaction(account.ID, "ABC").
//	    WithShares(-5).
//	    WithPrice("25").
//	    Build(t, db)
type TransactionBuilder struct {
	ID         string
	AccountID  string
	Symbol     string
	Shares     int64
	Price      decimal.Decimal
	ExecutedAt time.Time
}

// NewTransaction creates a TransactionBuilder with sensible defaults (a buy of 10 at 20).
func NewTransaction(accountID, symbol string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:         MakeID(),
		AccountID:  accountID,
		Symbol:     symbol,
		Shares:     10,
		Price:      decimal.RequireFromString("20"),
		ExecutedAt: time.Now().UTC(),
	}
}

// WithShares sets the signed share delta.
func (b *TransactionBuilder) WithShares(shares int64) *TransactionBuilder {
	b.Shares = shares
	return b
}

// WithPrice sets the execution price.
func (b *TransactionBuilder) WithPrice(price string) *TransactionBuilder {
	b.Price = decimal.RequireFromString(price)
	return b
}

// WithExecutedAt sets the execution time.
func (b *TransactionBuilder) WithExecutedAt(at time.Time) *TransactionBuilder {
	b.ExecutedAt = at
	return b
}

// Build appends the transaction to the ledger and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	quantity := b.Shares
	if quantity < 0 {
		quantity = -quantity
	}

	transaction := model.Transaction{
		ID:         b.ID,
		AccountID:  b.AccountID,
		Symbol:     b.Symbol,
		Shares:     b.Shares,
		Price:      b.Price,
		Total:      b.Price.Mul(decimal.NewFromInt(quantity)),
		ExecutedAt: b.ExecutedAt,
	}

	query := `
		INSERT INTO ledger_transaction (id, account_id, symbol, shares, price, total, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query,
		transaction.ID,
		transaction.AccountID,
		transaction.Symbol,
		transaction.Shares,
		transaction.Price.String(),
		transaction.Total.String(),
		repository.FormatTime(transaction.ExecutedAt),
	)
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	if transaction.Seq, err = result.LastInsertId(); err != nil {
		t.Fatalf("Failed to read test transaction sequence: %v", err)
	}

	return transaction
}
