package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/testutil"
)

// TestReconcileService_LedgerMatchesState runs a mixed sequence of orders and replays the ledger.
//
// WHY: Each holding must equal the sum of its ledger deltas and the cash must equal
// the initial deposit plus every cash flow, whatever the order sequence was.
func TestReconcileService_LedgerMatchesState(t *testing.T) {
	// Setup
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "20").WithPrice("XYZ", "3.33")
	portfolio := testutil.NewTestPortfolioService(t, db, quotes)
	reconcile := testutil.NewTestReconcileService(t, db, portfolio)
	account := testutil.CreateAccount(t, db, "1000")

	steps := []struct {
		sell   bool
		symbol string
		shares int64
		price  string
	}{
		{false, "ABC", 10, "20"},
		{false, "XYZ", 7, "3.33"},
		{true, "ABC", 4, "22.5"},
		{false, "ABC", 1, "19.75"},
		{true, "XYZ", 7, "3.01"},
	}

	// Execute
	for _, s := range steps {
		quotes.WithPrice(s.symbol, s.price)
		var err error
		if s.sell {
			_, err = portfolio.ExecuteSell(ctx, account.ID, s.symbol, s.shares)
		} else {
			_, err = portfolio.ExecuteBuy(ctx, account.ID, s.symbol, s.shares)
		}
		if err != nil {
			t.Fatalf("Order %+v returned unexpected error: %v", s, err)
		}
	}

	report, err := reconcile.Reconcile(ctx)

	// Assert
	if err != nil {
		t.Fatalf("Reconcile() returned unexpected error: %v", err)
	}
	if report.AccountsChecked != 1 {
		t.Errorf("Expected 1 account checked, got %d", report.AccountsChecked)
	}
	if !report.Consistent() {
		t.Errorf("Expected consistent ledger, got %+v", report.Discrepancies)
	}

	// 1000 - 200 - 23.31 + 90 - 19.75 + 21.07
	assertCash(t, portfolio, account.ID, "868.01")
}

func TestReconcileService_DetectsDiscrepancies(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	reconcile := testutil.NewTestReconcileService(t, db, nil)

	account := testutil.NewAccount().WithCash("800").WithInitialCash("1000").Build(t, db)
	testutil.NewTransaction(account.ID, "ABC").WithShares(10).WithPrice("20").Build(t, db)
	testutil.NewHolding(account.ID, "ABC").WithShares(9).Build(t, db)
	testutil.NewHolding(account.ID, "XYZ").WithShares(1).Build(t, db)

	if _, err := db.Exec(`UPDATE account SET cash = '790' WHERE id = ?`, account.ID); err != nil {
		t.Fatalf("Failed to tamper with cash: %v", err)
	}

	found, err := reconcile.ReconcileAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("ReconcileAccount() returned unexpected error: %v", err)
	}

	if len(found) != 3 {
		t.Fatalf("Expected 3 discrepancies, got %+v", found)
	}

	abc, xyz, cash := found[0], found[1], found[2]
	if abc.Kind != model.DiscrepancyShares || abc.Symbol != "ABC" ||
		!abc.Expected.Equal(decimal.NewFromInt(10)) || !abc.Actual.Equal(decimal.NewFromInt(9)) {
		t.Errorf("Unexpected ABC discrepancy %+v", abc)
	}
	if xyz.Kind != model.DiscrepancyShares || xyz.Symbol != "XYZ" ||
		!xyz.Expected.IsZero() || !xyz.Actual.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Unexpected XYZ discrepancy %+v", xyz)
	}
	if cash.Kind != model.DiscrepancyCash ||
		!cash.Expected.Equal(decimal.NewFromInt(800)) || !cash.Actual.Equal(decimal.NewFromInt(790)) {
		t.Errorf("Unexpected cash discrepancy %+v", cash)
	}
}
