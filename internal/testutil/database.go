package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/database"
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The schema is created by running the real migrations.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := database.Open(database.MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if _, err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// FailLedgerAppends installs a trigger that makes every insert into the ledger fail.
// It simulates a storage failure in the last step of an order.
//
// Example usage:
//
//	testutil.FailLedgerAppends(t, db)
//	_, err := svc.ExecuteBuy(ctx, accountID, "ABC", 1)
//	// errors.Is(err, apperrors.ErrStorageFailure) == true
func FailLedgerAppends(t *testing.T, db *sql.DB) {
	t.Helper()

	trigger := `
		CREATE TRIGGER test_fail_ledger_insert
		BEFORE INSERT ON ledger_transaction
		BEGIN
			SELECT RAISE(ABORT, 'ledger unavailable');
		END
	`
	if _, err := db.Exec(trigger); err != nil {
		t.Fatalf("Failed to install failing ledger trigger: %v", err)
	}
}

// CountRows returns the number of rows in a table.
// Useful for assertions in tests.
//
// Example usage:
//
//	count := testutil.CountRows(t, db, "ledger_transaction")
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	//nolint:gosec // G202: Table names come from test code
	query := "SELECT COUNT(*) FROM " + table
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}

// AssertRowCount asserts that a table has the expected number of rows.
//
// Example usage:
//
//	testutil.AssertRowCount(t, db, "holding", 2)
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	actual := CountRows(t, db, table)
	if actual != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}
