package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/quote"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/testutil"
)

func assertCash(t *testing.T, svc interface {
	GetCash(context.Context, string) (decimal.Decimal, error)
}, accountID, want string) {
	t.Helper()

	cash, err := svc.GetCash(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetCash() returned unexpected error: %v", err)
	}
	if !cash.Equal(decimal.RequireFromString(want)) {
		t.Errorf("Expected cash %s, got %s", want, cash)
	}
}

// TestPortfolioService_BuyThenSell walks an account through a full round trip.
//
// WHY: This is the reference scenario of the engine. Cash, holdings and the ledger
// must agree after every step, and closing a position must remove it.
func TestPortfolioService_BuyThenSell(t *testing.T) {
	// Setup
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "20")
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")

	// Execute: buy
	bought, err := svc.ExecuteBuy(ctx, account.ID, "abc", 10)

	// Assert
	if err != nil {
		t.Fatalf("ExecuteBuy() returned unexpected error: %v", err)
	}
	if !bought.Cash.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected cash 800 after buy, got %s", bought.Cash)
	}
	if bought.Holding == nil || bought.Holding.Shares != 10 || bought.Holding.Symbol != "ABC" {
		t.Fatalf("Expected 10 shares of ABC, got %+v", bought.Holding)
	}
	if bought.Transaction.Shares != 10 || !bought.Transaction.Total.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Unexpected buy transaction %+v", bought.Transaction)
	}
	assertCash(t, svc, account.ID, "800")

	// Execute: sell at a higher price
	quotes.WithPrice("ABC", "25")
	sold, err := svc.ExecuteSell(ctx, account.ID, "ABC", 10)

	// Assert
	if err != nil {
		t.Fatalf("ExecuteSell() returned unexpected error: %v", err)
	}
	if !sold.Cash.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("Expected cash 1050 after sell, got %s", sold.Cash)
	}
	if sold.Holding != nil {
		t.Errorf("Expected closed position, got %+v", sold.Holding)
	}
	assertCash(t, svc, account.ID, "1050")

	shares, err := svc.GetShares(ctx, account.ID, "ABC")
	if err != nil {
		t.Fatalf("GetShares() returned unexpected error: %v", err)
	}
	if shares != 0 {
		t.Errorf("Expected 0 shares, got %d", shares)
	}
	testutil.AssertRowCount(t, db, "holding", 0)

	ledger, err := svc.ListTransactions(ctx, account.ID)
	if err != nil {
		t.Fatalf("ListTransactions() returned unexpected error: %v", err)
	}
	if len(ledger) != 2 {
		t.Fatalf("Expected 2 ledger rows, got %d", len(ledger))
	}
	if ledger[0].Shares != 10 || !ledger[0].Price.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected first row +10@20, got %d@%s", ledger[0].Shares, ledger[0].Price)
	}
	if ledger[1].Shares != -10 || !ledger[1].Price.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected second row -10@25, got %d@%s", ledger[1].Shares, ledger[1].Price)
	}
	if ledger[1].ExecutedAt.Before(ledger[0].ExecutedAt) {
		t.Errorf("Ledger timestamps go backwards: %v then %v", ledger[0].ExecutedAt, ledger[1].ExecutedAt)
	}
}

func TestPortfolioService_RepeatedBuysAccumulate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "10")
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")

	for _, shares := range []int64{5, 3, 2} {
		if _, err := svc.ExecuteBuy(ctx, account.ID, "ABC", shares); err != nil {
			t.Fatalf("ExecuteBuy(%d) returned unexpected error: %v", shares, err)
		}
	}

	shares, err := svc.GetShares(ctx, account.ID, "ABC")
	if err != nil {
		t.Fatalf("GetShares() returned unexpected error: %v", err)
	}
	if shares != 10 {
		t.Errorf("Expected 10 shares (sum of purchases), got %d", shares)
	}
	assertCash(t, svc, account.ID, "900")
}

func TestPortfolioService_RejectedOrders(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cash    string
		held    int64
		sell    bool
		symbol  string
		shares  int64
		wantErr error
	}{
		{name: "buy zero shares", cash: "1000", symbol: "XYZ", shares: 0, wantErr: apperrors.ErrInvalidOrder},
		{name: "buy negative shares", cash: "1000", symbol: "ABC", shares: -3, wantErr: apperrors.ErrInvalidOrder},
		{name: "sell zero shares", cash: "1000", held: 5, sell: true, symbol: "ABC", shares: 0, wantErr: apperrors.ErrInvalidOrder},
		{name: "empty symbol", cash: "1000", symbol: "  ", shares: 1, wantErr: apperrors.ErrInvalidOrder},
		{name: "unknown symbol", cash: "1000", symbol: "NOPE", shares: 1, wantErr: apperrors.ErrUnknownSymbol},
		{name: "provider down", cash: "1000", symbol: "DOWN", shares: 1, wantErr: apperrors.ErrQuoteUnavailable},
		{name: "insufficient funds", cash: "199.99", symbol: "ABC", shares: 10, wantErr: apperrors.ErrInsufficientFunds},
		{name: "oversell", cash: "1000", held: 5, sell: true, symbol: "ABC", shares: 6, wantErr: apperrors.ErrInsufficientShares},
		{name: "sell not held", cash: "1000", sell: true, symbol: "ABC", shares: 1, wantErr: apperrors.ErrInsufficientShares},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			db := testutil.SetupTestDB(t)
			quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "20").WithFailure("DOWN")
			svc := testutil.NewTestPortfolioService(t, db, quotes)
			account := testutil.CreateAccount(t, db, tt.cash)
			if tt.held > 0 {
				testutil.NewHolding(account.ID, "ABC").WithShares(tt.held).Build(t, db)
			}

			// Execute
			var err error
			if tt.sell {
				_, err = svc.ExecuteSell(ctx, account.ID, tt.symbol, tt.shares)
			} else {
				_, err = svc.ExecuteBuy(ctx, account.ID, tt.symbol, tt.shares)
			}

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			assertCash(t, svc, account.ID, tt.cash)
			testutil.AssertRowCount(t, db, "ledger_transaction", 0)

			shares, err := svc.GetShares(ctx, account.ID, "ABC")
			if err != nil {
				t.Fatalf("GetShares() returned unexpected error: %v", err)
			}
			if shares != tt.held {
				t.Errorf("Expected %d shares, got %d", tt.held, shares)
			}
		})
	}

	t.Run("invalid orders never reach the quote provider", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "20")
		svc := testutil.NewTestPortfolioService(t, db, quotes)
		account := testutil.CreateAccount(t, db, "1000")

		_, _ = svc.ExecuteBuy(ctx, account.ID, "ABC", 0)
		_, _ = svc.ExecuteSell(ctx, account.ID, "ABC", -1)

		if quotes.QueryCount != 0 {
			t.Errorf("Expected no quote lookups, got %d", quotes.QueryCount)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "20")
		svc := testutil.NewTestPortfolioService(t, db, quotes)

		_, err := svc.ExecuteBuy(ctx, testutil.MakeID(), "ABC", 1)
		if !errors.Is(err, apperrors.ErrAccountNotFound) {
			t.Errorf("Expected ErrAccountNotFound, got %v", err)
		}
	})
}

// TestPortfolioService_StorageFailureRollsBack makes the final ledger append fail.
//
// WHY: The cash debit and the holding change are already written when the append
// fails. Both must be rolled back so that no partial order is ever visible.
func TestPortfolioService_StorageFailureRollsBack(t *testing.T) {
	// Setup
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "20")
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")
	testutil.NewHolding(account.ID, "ABC").WithShares(5).Build(t, db)
	testutil.FailLedgerAppends(t, db)

	// Execute
	_, buyErr := svc.ExecuteBuy(ctx, account.ID, "ABC", 10)
	_, sellErr := svc.ExecuteSell(ctx, account.ID, "ABC", 5)

	// Assert
	if !errors.Is(buyErr, apperrors.ErrStorageFailure) {
		t.Errorf("Expected ErrStorageFailure from buy, got %v", buyErr)
	}
	if !errors.Is(sellErr, apperrors.ErrStorageFailure) {
		t.Errorf("Expected ErrStorageFailure from sell, got %v", sellErr)
	}

	assertCash(t, svc, account.ID, "1000")
	testutil.AssertRowCount(t, db, "ledger_transaction", 0)

	shares, err := svc.GetShares(ctx, account.ID, "ABC")
	if err != nil {
		t.Fatalf("GetShares() returned unexpected error: %v", err)
	}
	if shares != 5 {
		t.Errorf("Expected holding to stay at 5 shares, got %d", shares)
	}
}

// TestPortfolioService_ConcurrentBuys races more buys than the cash can cover.
//
// WHY: Funds are checked and debited under the account lock. Exactly as many buys as
// fit must succeed and the balance must never go negative.
func TestPortfolioService_ConcurrentBuys(t *testing.T) {
	// Setup
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "100")
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")

	const attempts = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0

	// Execute
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExecuteBuy(ctx, account.ID, "ABC", 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("ExecuteBuy() returned unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Assert
	if succeeded != 10 {
		t.Errorf("Expected 10 successful buys, got %d", succeeded)
	}
	if rejected != attempts-10 {
		t.Errorf("Expected %d rejected buys, got %d", attempts-10, rejected)
	}
	assertCash(t, svc, account.ID, "0")

	shares, err := svc.GetShares(ctx, account.ID, "ABC")
	if err != nil {
		t.Fatalf("GetShares() returned unexpected error: %v", err)
	}
	if shares != 10 {
		t.Errorf("Expected 10 shares, got %d", shares)
	}
	testutil.AssertRowCount(t, db, "ledger_transaction", 10)

	if n := svc.Locks().Len(); n != 0 {
		t.Errorf("Expected all account locks released, %d remain", n)
	}
}

func TestPortfolioService_ConcurrentAccountsAreIndependent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "10")
	svc := testutil.NewTestPortfolioService(t, db, quotes)

	accounts := []string{
		testutil.CreateAccount(t, db, "100").ID,
		testutil.CreateAccount(t, db, "100").ID,
		testutil.CreateAccount(t, db, "100").ID,
	}

	var wg sync.WaitGroup
	for _, id := range accounts {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.ExecuteBuy(ctx, id, "ABC", 2); err != nil {
					t.Errorf("ExecuteBuy() returned unexpected error: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	for _, id := range accounts {
		assertCash(t, svc, id, "0")
	}
}

func TestPortfolioService_ExecutedAtNeverDecreases(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "10")
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return clock })

	first, err := svc.ExecuteBuy(ctx, account.ID, "ABC", 1)
	if err != nil {
		t.Fatalf("ExecuteBuy() returned unexpected error: %v", err)
	}

	clock = clock.Add(-time.Hour)
	second, err := svc.ExecuteBuy(ctx, account.ID, "ABC", 1)
	if err != nil {
		t.Fatalf("ExecuteBuy() returned unexpected error: %v", err)
	}

	if second.Transaction.ExecutedAt.Before(first.Transaction.ExecutedAt) {
		t.Errorf("Expected %v not before %v", second.Transaction.ExecutedAt, first.Transaction.ExecutedAt)
	}
	if second.Transaction.Seq <= first.Transaction.Seq {
		t.Errorf("Expected increasing sequence, got %d then %d", first.Transaction.Seq, second.Transaction.Seq)
	}
}

func TestPortfolioService_ValuatePortfolio(t *testing.T) {
	ctx := context.Background()

	t.Run("all positions priced", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "25").WithPrice("XYZ", "4.5")
		svc := testutil.NewTestPortfolioService(t, db, quotes)
		account := testutil.CreateAccount(t, db, "100")
		testutil.NewHolding(account.ID, "ABC").WithShares(10).WithAveragePrice("20").Build(t, db)
		testutil.NewHolding(account.ID, "XYZ").WithShares(2).WithAveragePrice("5").Build(t, db)

		// Execute
		v, err := svc.ValuatePortfolio(ctx, account.ID)

		// Assert
		if err != nil {
			t.Fatalf("ValuatePortfolio() returned unexpected error: %v", err)
		}
		if v.Partial {
			t.Error("Expected complete valuation")
		}
		if !v.HoldingsValue.Equal(decimal.NewFromInt(259)) {
			t.Errorf("Expected holdings value 259, got %s", v.HoldingsValue)
		}
		if !v.Total.Equal(decimal.NewFromInt(359)) {
			t.Errorf("Expected total 359, got %s", v.Total)
		}
		if len(v.Positions) != 2 || v.Positions[0].Symbol != "ABC" {
			t.Fatalf("Unexpected positions %+v", v.Positions)
		}
		if !v.Positions[0].Value.Equal(decimal.NewFromInt(250)) {
			t.Errorf("Expected ABC value 250, got %s", v.Positions[0].Value)
		}

		h, err := repository.NewHoldingRepository(db).GetHolding(ctx, account.ID, "ABC")
		if err != nil {
			t.Fatalf("GetHolding() returned unexpected error: %v", err)
		}
		if h.LastPrice == nil || !h.LastPrice.Equal(decimal.NewFromInt(25)) {
			t.Errorf("Expected last price 25 to be recorded, got %v", h.LastPrice)
		}
	})

	t.Run("unreachable quote makes the valuation partial", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "25").WithFailure("XYZ")
		svc := testutil.NewTestPortfolioService(t, db, quotes)
		account := testutil.CreateAccount(t, db, "100")
		testutil.NewHolding(account.ID, "ABC").WithShares(10).Build(t, db)
		testutil.NewHolding(account.ID, "XYZ").WithShares(2).WithLastPrice("7").Build(t, db)

		// Execute
		v, err := svc.ValuatePortfolio(ctx, account.ID)

		// Assert
		if !errors.Is(err, apperrors.ErrPartialValuation) {
			t.Fatalf("Expected ErrPartialValuation, got %v", err)
		}
		if v == nil {
			t.Fatal("Expected a valuation alongside the partial error")
		}
		if !v.Partial || len(v.Unavailable) != 1 || v.Unavailable[0] != "XYZ" {
			t.Errorf("Expected XYZ unavailable, got partial=%v unavailable=%v", v.Partial, v.Unavailable)
		}
		if !v.Total.Equal(decimal.NewFromInt(350)) {
			t.Errorf("Expected total 350 excluding XYZ, got %s", v.Total)
		}

		xyz := v.Positions[1]
		if !xyz.Stale || !xyz.Value.IsZero() {
			t.Errorf("Expected stale XYZ with zero value, got %+v", xyz)
		}
		if xyz.LastKnownPrice == nil || !xyz.LastKnownPrice.Equal(decimal.NewFromInt(7)) {
			t.Errorf("Expected last known price 7, got %v", xyz.LastKnownPrice)
		}
	})

	t.Run("empty portfolio is worth its cash", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewMockQuoteProvider())
		account := testutil.CreateAccount(t, db, "123.45")

		v, err := svc.ValuatePortfolio(ctx, account.ID)
		if err != nil {
			t.Fatalf("ValuatePortfolio() returned unexpected error: %v", err)
		}
		if !v.Total.Equal(decimal.RequireFromString("123.45")) || len(v.Positions) != 0 {
			t.Errorf("Expected total 123.45 and no positions, got %s and %d", v.Total, len(v.Positions))
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db, testutil.NewMockQuoteProvider())

		_, err := svc.ValuatePortfolio(ctx, testutil.MakeID())
		if !errors.Is(err, apperrors.ErrAccountNotFound) {
			t.Errorf("Expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestPortfolioService_ListTransactionsPage(t *testing.T) {
	// Setup
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "1")
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")
	other := testutil.CreateAccount(t, db, "1000")

	for i := int64(1); i <= 5; i++ {
		if _, err := svc.ExecuteBuy(ctx, account.ID, "ABC", i); err != nil {
			t.Fatalf("ExecuteBuy() returned unexpected error: %v", err)
		}
	}

	// Execute: walk every page
	var shares []int64
	cursor := ""
	pages := 0
	for {
		page, err := svc.ListTransactionsPage(ctx, account.ID, cursor, 2)
		if err != nil {
			t.Fatalf("ListTransactionsPage() returned unexpected error: %v", err)
		}
		pages++
		for _, tx := range page.Transactions {
			shares = append(shares, tx.Shares)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	// Assert
	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}
	want := []int64{1, 2, 3, 4, 5}
	if len(shares) != len(want) {
		t.Fatalf("Expected %v, got %v", want, shares)
	}
	for i := range want {
		if shares[i] != want[i] {
			t.Errorf("Expected %v (oldest first), got %v", want, shares)
			break
		}
	}

	t.Run("tampered cursor", func(t *testing.T) {
		_, err := svc.ListTransactionsPage(ctx, account.ID, "garbage", 2)
		if !errors.Is(err, apperrors.ErrInvalidCursor) {
			t.Errorf("Expected ErrInvalidCursor, got %v", err)
		}
	})

	t.Run("cursor of another account", func(t *testing.T) {
		page, err := svc.ListTransactionsPage(ctx, account.ID, "", 1)
		if err != nil || page.NextCursor == "" {
			t.Fatalf("Expected a next cursor, got %v (err %v)", page, err)
		}

		_, err = svc.ListTransactionsPage(ctx, other.ID, page.NextCursor, 1)
		if !errors.Is(err, apperrors.ErrInvalidCursor) {
			t.Errorf("Expected ErrInvalidCursor, got %v", err)
		}
	})
}

func TestPortfolioService_Quote(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "12.34")
	svc := testutil.NewTestPortfolioService(t, db, quotes)

	q, err := svc.Quote(ctx, " abc ")
	if err != nil {
		t.Fatalf("Quote() returned unexpected error: %v", err)
	}
	if q.Symbol != "ABC" || !q.Price.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("Unexpected quote %+v", q)
	}

	if _, err := svc.Quote(ctx, "NOPE"); !errors.Is(err, apperrors.ErrUnknownSymbol) {
		t.Errorf("Expected ErrUnknownSymbol, got %v", err)
	}
}

// quotedSignal wraps a provider and closes quoted after the first lookup returns.
type quotedSignal struct {
	quote.Provider
	once   sync.Once
	quoted chan struct{}
}

func newQuotedSignal(p quote.Provider) *quotedSignal {
	return &quotedSignal{Provider: p, quoted: make(chan struct{})}
}

func (q *quotedSignal) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	res, err := q.Provider.Lookup(ctx, symbol)
	q.once.Do(func() { close(q.quoted) })
	return res, err
}

// TestPortfolioService_OrderUsesPriceQuotedBeforeLock holds the account lock while the
// price moves under a pending buy.
//
// WHY: The quote is taken before the account lock is acquired and is the price the order
// commits at, however long the order waits for the lock.
func TestPortfolioService_OrderUsesPriceQuotedBeforeLock(t *testing.T) {
	// Setup
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	mock := testutil.NewMockQuoteProvider().WithPrice("ABC", "10")
	quotes := newQuotedSignal(mock)
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")

	unlock := svc.Locks().Lock(account.ID)

	type outcome struct {
		result *model.OrderResult
		err    error
	}
	done := make(chan outcome, 1)

	// Execute
	go func() {
		result, err := svc.ExecuteBuy(ctx, account.ID, "ABC", 1)
		done <- outcome{result, err}
	}()

	select {
	case <-quotes.quoted:
	case <-time.After(5 * time.Second):
		unlock()
		t.Fatal("Timed out waiting for the quote")
	}
	mock.WithPrice("ABC", "500")
	unlock()

	var got outcome
	select {
	case got = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the buy")
	}

	// Assert
	if got.err != nil {
		t.Fatalf("ExecuteBuy() returned unexpected error: %v", got.err)
	}
	if !got.result.Transaction.Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected execution price 10, got %s", got.result.Transaction.Price)
	}
	if !got.result.Cash.Equal(decimal.NewFromInt(990)) {
		t.Errorf("Expected cash 990, got %s", got.result.Cash)
	}
	assertCash(t, svc, account.ID, "990")

	transactions, err := svc.ListTransactions(ctx, account.ID)
	if err != nil {
		t.Fatalf("ListTransactions() returned unexpected error: %v", err)
	}
	if len(transactions) != 1 || !transactions[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected one transaction at 10, got %+v", transactions)
	}
}

// TestPortfolioService_CancelledOrderLeavesNoTrace cancels a buy while it waits for the
// account lock.
//
// WHY: A cancelled order reports the cancellation and must not change cash, holdings or
// the ledger.
func TestPortfolioService_CancelledOrderLeavesNoTrace(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	quotes := newQuotedSignal(testutil.NewMockQuoteProvider().WithPrice("ABC", "10"))
	svc := testutil.NewTestPortfolioService(t, db, quotes)
	account := testutil.CreateAccount(t, db, "1000")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unlock := svc.Locks().Lock(account.ID)
	done := make(chan error, 1)

	// Execute
	go func() {
		_, err := svc.ExecuteBuy(ctx, account.ID, "ABC", 5)
		done <- err
	}()

	select {
	case <-quotes.quoted:
	case <-time.After(5 * time.Second):
		unlock()
		t.Fatal("Timed out waiting for the quote")
	}
	cancel()
	unlock()

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the buy")
	}

	// Assert
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	assertCash(t, svc, account.ID, "1000")
	testutil.AssertRowCount(t, db, "holding", 0)
	testutil.AssertRowCount(t, db, "ledger_transaction", 0)
}

// TestPortfolioService_QuoteFailureHidesProviderDetails points the service at an
// unreachable IEX endpoint.
//
// WHY: Provider errors carry request URLs with the API token. Callers only learn which
// symbol could not be priced.
func TestPortfolioService_QuoteFailureHidesProviderDetails(t *testing.T) {
	// Setup
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	const apiKey = "SECRETKEY123"
	svc := testutil.NewTestPortfolioService(t, db, quote.NewIEXProvider("http://127.0.0.1:1", apiKey, time.Second))
	account := testutil.CreateAccount(t, db, "1000")
	testutil.NewHolding(account.ID, "ABC").WithShares(3).WithLastPrice("7").Build(t, db)

	t.Run("order error", func(t *testing.T) {
		_, err := svc.ExecuteBuy(ctx, account.ID, "ABC", 1)
		if !errors.Is(err, apperrors.ErrQuoteUnavailable) {
			t.Fatalf("Expected ErrQuoteUnavailable, got %v", err)
		}
		if strings.Contains(err.Error(), apiKey) {
			t.Errorf("Expected API key to stay out of the error, got %q", err.Error())
		}
		if !strings.Contains(err.Error(), "ABC") {
			t.Errorf("Expected symbol in the error, got %q", err.Error())
		}
	})

	t.Run("valuation position error", func(t *testing.T) {
		v, err := svc.ValuatePortfolio(ctx, account.ID)
		if !errors.Is(err, apperrors.ErrPartialValuation) || v == nil {
			t.Fatalf("Expected partial valuation, got %v", err)
		}
		if len(v.Positions) != 1 || v.Positions[0].Error == "" {
			t.Fatalf("Expected one stale position with an error, got %+v", v.Positions)
		}
		if strings.Contains(v.Positions[0].Error, apiKey) {
			t.Errorf("Expected API key to stay out of the position error, got %q", v.Positions[0].Error)
		}
	})
}
