package testutil

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/quote"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/service"
)

// TestCursorKey is a fixed fernet key for tests that need stable cursors.
const TestCursorKey = "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4="

// NewTestPortfolioService creates a PortfolioService backed by db and the given quote provider.
func NewTestPortfolioService(t *testing.T, db *sql.DB, quotes quote.Provider) *service.PortfolioService {
	t.Helper()

	cursors, err := service.NewCursorCodec(TestCursorKey)
	if err != nil {
		t.Fatalf("Failed to create cursor codec: %v", err)
	}

	return service.NewPortfolioService(
		db,
		repository.NewAccountRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewTransactionRepository(db),
		quotes,
		cursors,
		4,
		zerolog.Nop(),
	)
}

// NewTestAccountService creates an AccountService seeding new accounts with 10000.00.
func NewTestAccountService(t *testing.T, db *sql.DB) *service.AccountService {
	t.Helper()

	return service.NewAccountService(
		repository.NewAccountRepository(db),
		decimal.RequireFromString("10000.00"),
		zerolog.Nop(),
	)
}

// NewTestReconcileService creates a ReconcileService sharing the account locks of portfolio.
// portfolio may be nil when no orders run concurrently with the reconciliation.
func NewTestReconcileService(t *testing.T, db *sql.DB, portfolio *service.PortfolioService) *service.ReconcileService {
	t.Helper()

	locks := service.NewAccountLocks()
	if portfolio != nil {
		locks = portfolio.Locks()
	}

	return service.NewReconcileService(
		repository.NewAccountRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewTransactionRepository(db),
		locks,
		zerolog.Nop(),
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakeUsername generates a unique username for testing.
//
// Example usage:
//
//	name := testutil.MakeUsername("alice")
//	// Returns: "alice_ABC123"
func MakeUsername(base string) string {
	if base == "" {
		base = "user"
	}
	return base + "_" + randomAlphanumeric(6)
}

// MustDecimal parses a decimal literal, failing the test on error.
func MustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("Invalid decimal %q: %v", value, err)
	}
	return d
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
