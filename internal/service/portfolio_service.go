package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/quote"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/repository"
)

// Page size limits for the transaction history.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PortfolioService is the portfolio ledger engine.
//
// It executes market orders against an account and values its holdings. Every order
// is a single unit of work: the cash adjustment, the holding change and the ledger
// entry are committed together in one SQL transaction or not at all. Orders on the
// same account are serialised by a per-account lock; orders on different accounts
// run in parallel.
type PortfolioService struct {
	db              *sql.DB
	accountRepo     *repository.AccountRepository
	holdingRepo     *repository.HoldingRepository
	transactionRepo *repository.TransactionRepository
	quotes          quote.Provider
	cursors         *CursorCodec
	locks           *AccountLocks
	concurrency     int
	now             func() time.Time
	log             zerolog.Logger
}

// NewPortfolioService creates a new PortfolioService.
// valuationConcurrency bounds the number of quote lookups a single valuation runs in parallel.
func NewPortfolioService(
	db *sql.DB,
	accountRepo *repository.AccountRepository,
	holdingRepo *repository.HoldingRepository,
	transactionRepo *repository.TransactionRepository,
	quotes quote.Provider,
	cursors *CursorCodec,
	valuationConcurrency int,
	log zerolog.Logger,
) *PortfolioService {
	if valuationConcurrency < 1 {
		valuationConcurrency = 1
	}
	return &PortfolioService{
		db:              db,
		accountRepo:     accountRepo,
		holdingRepo:     holdingRepo,
		transactionRepo: transactionRepo,
		quotes:          quotes,
		cursors:         cursors,
		locks:           NewAccountLocks(),
		concurrency:     valuationConcurrency,
		now:             time.Now,
		log:             log.With().Str("component", "portfolio").Logger(),
	}
}

// SetClock replaces the clock used to timestamp transactions.
func (s *PortfolioService) SetClock(now func() time.Time) {
	s.now = now
}

// Locks returns the account lock table shared by every mutation of the engine.
func (s *PortfolioService) Locks() *AccountLocks {
	return s.locks
}

// ExecuteBuy buys shares of symbol for the account at the current quote.
//
// Errors, all detected before anything is written:
//   - apperrors.ErrInvalidOrder: shares is not positive or symbol is empty
//   - apperrors.ErrUnknownSymbol: the provider does not know the symbol
//   - apperrors.ErrQuoteUnavailable: the provider could not be reached
//   - apperrors.ErrAccountNotFound
//   - apperrors.ErrInsufficientFunds: the purchase costs more than the cash balance
//
// apperrors.ErrStorageFailure is returned when the unit of work could not be committed;
// nothing of the order is visible in that case.
func (s *PortfolioService) ExecuteBuy(ctx context.Context, accountID, symbol string, shares int64) (*model.OrderResult, error) {
	symbol, err := validateOrder(symbol, shares)
	if err != nil {
		return nil, err
	}

	q, err := s.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return s.executeOrder(ctx, accountID, q, shares)
}

// ExecuteSell sells shares of symbol from the account at the current quote.
//
// It fails like ExecuteBuy, except that apperrors.ErrInsufficientShares replaces
// apperrors.ErrInsufficientFunds. Selling every share held closes the position and
// the returned holding is nil.
func (s *PortfolioService) ExecuteSell(ctx context.Context, accountID, symbol string, shares int64) (*model.OrderResult, error) {
	symbol, err := validateOrder(symbol, shares)
	if err != nil {
		return nil, err
	}

	q, err := s.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return s.executeOrder(ctx, accountID, q, -shares)
}

func validateOrder(symbol string, shares int64) (string, error) {
	if shares <= 0 {
		return "", fmt.Errorf("%w: shares must be a positive integer, got %d", apperrors.ErrInvalidOrder, shares)
	}
	symbol = quote.NormalizeSymbol(symbol)
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", apperrors.ErrInvalidOrder)
	}
	return symbol, nil
}

// executeOrder applies a signed share delta at the quoted price.
// The quoted price is used both for the preconditions and for the committed amounts.
func (s *PortfolioService) executeOrder(ctx context.Context, accountID string, q model.Quote, delta int64) (*model.OrderResult, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.storageFailure(ctx, accountID, "begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	accountRepo := s.accountRepo.WithTx(tx)
	holdingRepo := s.holdingRepo.WithTx(tx)
	transactionRepo := s.transactionRepo.WithTx(tx)

	quantity := decimal.NewFromInt(delta).Abs()
	amount := q.Price.Mul(quantity)

	cash, err := accountRepo.GetCash(ctx, accountID)
	if errors.Is(err, apperrors.ErrAccountNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, s.storageFailure(ctx, accountID, "read cash", err)
	}

	if delta > 0 && cash.LessThan(amount) {
		return nil, fmt.Errorf("%w: %d %s at %s costs %s, cash is %s",
			apperrors.ErrInsufficientFunds, delta, q.Symbol, q.Price, amount.StringFixed(2), cash.StringFixed(2))
	}
	if delta < 0 {
		held, err := holdingRepo.GetShares(ctx, accountID, q.Symbol)
		if err != nil {
			return nil, s.storageFailure(ctx, accountID, "read shares", err)
		}
		if held < -delta {
			return nil, fmt.Errorf("%w: %s held %d, requested %d",
				apperrors.ErrInsufficientShares, q.Symbol, held, -delta)
		}
	}

	executedAt := s.now().UTC()
	last, err := transactionRepo.LastExecutedAt(ctx, accountID)
	if err != nil {
		return nil, s.storageFailure(ctx, accountID, "read ledger", err)
	}
	if executedAt.Before(last) {
		executedAt = last
	}

	transaction := model.Transaction{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		Symbol:     q.Symbol,
		Shares:     delta,
		Price:      q.Price,
		Total:      amount,
		ExecutedAt: executedAt,
	}

	newCash, err := accountRepo.AdjustCash(ctx, accountID, transaction.CashFlow())
	if err != nil {
		return nil, s.storageFailure(ctx, accountID, "adjust cash", err)
	}

	holding, err := holdingRepo.ApplyDelta(ctx, accountID, q.Symbol, delta, q.Price, executedAt)
	if err != nil {
		return nil, s.storageFailure(ctx, accountID, "apply holding", err)
	}

	if err := transactionRepo.Append(ctx, &transaction); err != nil {
		return nil, s.storageFailure(ctx, accountID, "append ledger", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageFailure(ctx, accountID, "commit", err)
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("symbol", q.Symbol).
		Int64("shares", delta).
		Str("price", q.Price.String()).
		Str("cash", newCash.String()).
		Msg("Order executed")

	return &model.OrderResult{
		Cash:        newCash,
		Holding:     holding,
		Transaction: transaction,
	}, nil
}

// storageFailure logs the cause of a failed unit of work and hides it behind ErrStorageFailure.
// A cancelled context is reported as such.
func (s *PortfolioService) storageFailure(ctx context.Context, accountID, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.log.Error().Err(err).Str("account_id", accountID).Str("step", step).Msg("Order rolled back")
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStorageFailure, step, err)
}

// lookup fetches a quote and maps provider errors onto order errors.
func (s *PortfolioService) lookup(ctx context.Context, symbol string) (model.Quote, error) {
	q, err := s.quotes.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, apperrors.ErrSymbolNotFound) {
			return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownSymbol, symbol)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Quote{}, ctxErr
		}
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, symbol)
	}

	if !q.Price.IsPositive() {
		return model.Quote{}, fmt.Errorf("%w: %s quoted at non-positive price %s", apperrors.ErrQuoteUnavailable, symbol, q.Price)
	}
	q.Symbol = symbol

	return q, nil
}

// Quote returns the current quote of a symbol.
func (s *PortfolioService) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = quote.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Quote{}, fmt.Errorf("%w: symbol is required", apperrors.ErrInvalidOrder)
	}
	return s.lookup(ctx, symbol)
}

// ValuatePortfolio values the account at current quotes.
//
// Quotes are looked up concurrently. A position whose quote fails is flagged stale,
// keeps its last known price for display, and is left out of the total. In that case
// the valuation is returned together with an error wrapping apperrors.ErrPartialValuation
// that names the unpriced symbols; callers may use both.
func (s *PortfolioService) ValuatePortfolio(ctx context.Context, accountID string) (*model.Valuation, error) {
	cash, holdings, err := s.snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	positions := make([]model.PositionValuation, len(holdings))
	prices := make([]*model.Quote, len(holdings))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, h := range holdings {
		g.Go(func() error {
			positions[i] = model.PositionValuation{
				Symbol:       h.Symbol,
				Shares:       h.Shares,
				AveragePrice: h.AveragePrice,
				CostBasis:    h.CostBasis,
			}

			q, err := s.lookup(ctx, h.Symbol)
			if err != nil {
				positions[i].Stale = true
				positions[i].LastKnownPrice = h.LastPrice
				positions[i].Error = err.Error()
				return nil
			}

			positions[i].Price = q.Price
			positions[i].Value = q.Price.Mul(decimal.NewFromInt(h.Shares))
			prices[i] = &q
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	valuation := &model.Valuation{
		AccountID:     accountID,
		Cash:          cash,
		HoldingsValue: decimal.Zero,
		Positions:     positions,
		ValuedAt:      s.now().UTC(),
	}

	for i, p := range positions {
		if p.Stale {
			valuation.Unavailable = append(valuation.Unavailable, p.Symbol)
			continue
		}
		valuation.HoldingsValue = valuation.HoldingsValue.Add(p.Value)

		pricedAt := prices[i].QuotedAt
		if pricedAt.IsZero() {
			pricedAt = valuation.ValuedAt
		}
		if err := s.holdingRepo.UpdateLastPrice(ctx, accountID, p.Symbol, p.Price, pricedAt); err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Str("symbol", p.Symbol).Msg("Failed to record last price")
		}
	}
	valuation.Total = cash.Add(valuation.HoldingsValue)

	if len(valuation.Unavailable) > 0 {
		valuation.Partial = true
		return valuation, fmt.Errorf("%w: no quote for %s", apperrors.ErrPartialValuation, strings.Join(valuation.Unavailable, ", "))
	}

	return valuation, nil
}

// snapshot reads cash and holdings of an account under its lock,
// so that no order is half visible between the two reads.
func (s *PortfolioService) snapshot(ctx context.Context, accountID string) (decimal.Decimal, []model.Holding, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	cash, err := s.accountRepo.GetCash(ctx, accountID)
	if err != nil {
		return decimal.Zero, nil, err
	}

	holdings, err := s.holdingRepo.ListHoldings(ctx, accountID)
	if err != nil {
		return decimal.Zero, nil, err
	}

	return cash, holdings, nil
}

// GetCash returns the cash balance of an account.
func (s *PortfolioService) GetCash(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.accountRepo.GetCash(ctx, accountID)
}

// ListHoldings returns the open positions of an account ordered by symbol.
func (s *PortfolioService) ListHoldings(ctx context.Context, accountID string) ([]model.Holding, error) {
	_, holdings, err := s.snapshot(ctx, accountID)
	return holdings, err
}

// GetShares returns the number of shares of symbol held by the account, 0 if none.
func (s *PortfolioService) GetShares(ctx context.Context, accountID, symbol string) (int64, error) {
	if _, err := s.accountRepo.GetCash(ctx, accountID); err != nil {
		return 0, err
	}
	return s.holdingRepo.GetShares(ctx, accountID, quote.NormalizeSymbol(symbol))
}

// ListTransactions returns the full ledger of an account, oldest first.
func (s *PortfolioService) ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	if _, err := s.accountRepo.GetCash(ctx, accountID); err != nil {
		return nil, err
	}
	return s.transactionRepo.ListTransactions(ctx, accountID)
}

// ListTransactionsPage returns one page of the ledger, oldest first.
// An empty cursor starts at the first transaction. limit is clamped to [1, MaxPageSize];
// zero or a negative value selects DefaultPageSize.
func (s *PortfolioService) ListTransactionsPage(ctx context.Context, accountID, cursor string, limit int) (*model.TransactionPage, error) {
	if _, err := s.accountRepo.GetCash(ctx, accountID); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	var afterSeq int64
	if cursor != "" {
		var err error
		afterSeq, err = s.cursors.Decode(accountID, cursor)
		if err != nil {
			return nil, err
		}
	}

	transactions, err := s.transactionRepo.ListTransactionsAfter(ctx, accountID, afterSeq, limit+1)
	if err != nil {
		return nil, err
	}

	page := &model.TransactionPage{Transactions: transactions}
	if len(transactions) > limit {
		page.Transactions = transactions[:limit]
		next, err := s.cursors.Encode(accountID, page.Transactions[limit-1].Seq)
		if err != nil {
			return nil, err
		}
		page.NextCursor = next
	}

	return page, nil
}
