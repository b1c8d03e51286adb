package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/repository"
)

// ReconcileService replays the ledger and compares it with the stored state.
//
// For every account it checks that each holding equals the sum of the share deltas
// recorded for its symbol, and that the cash balance equals the initial deposit plus
// the cash flow of every transaction.
type ReconcileService struct {
	accountRepo     *repository.AccountRepository
	holdingRepo     *repository.HoldingRepository
	transactionRepo *repository.TransactionRepository
	locks           *AccountLocks
	log             zerolog.Logger
}

// NewReconcileService creates a new ReconcileService.
// locks must be the lock table of the portfolio engine so that an account is never
// checked halfway through an order.
func NewReconcileService(
	accountRepo *repository.AccountRepository,
	holdingRepo *repository.HoldingRepository,
	transactionRepo *repository.TransactionRepository,
	locks *AccountLocks,
	log zerolog.Logger,
) *ReconcileService {
	return &ReconcileService{
		accountRepo:     accountRepo,
		holdingRepo:     holdingRepo,
		transactionRepo: transactionRepo,
		locks:           locks,
		log:             log.With().Str("component", "reconcile").Logger(),
	}
}

// Reconcile checks every account and returns the discrepancies found.
func (s *ReconcileService) Reconcile(ctx context.Context) (model.ReconcileReport, error) {
	report := model.ReconcileReport{Discrepancies: []model.Discrepancy{}}

	accounts, err := s.accountRepo.ListAccounts(ctx)
	if err != nil {
		return report, err
	}

	for _, account := range accounts {
		found, err := s.ReconcileAccount(ctx, account.ID)
		if err != nil {
			return report, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
		}
		report.AccountsChecked++
		report.Discrepancies = append(report.Discrepancies, found...)
	}

	if report.Consistent() {
		s.log.Info().Int("accounts", report.AccountsChecked).Msg("Ledger reconciled")
	} else {
		for _, d := range report.Discrepancies {
			s.log.Error().
				Str("account_id", d.AccountID).
				Str("symbol", d.Symbol).
				Str("kind", d.Kind).
				Str("expected", d.Expected.String()).
				Str("actual", d.Actual.String()).
				Msg("Ledger discrepancy")
		}
	}

	return report, nil
}

// ReconcileAccount checks a single account.
func (s *ReconcileService) ReconcileAccount(ctx context.Context, accountID string) ([]model.Discrepancy, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.holdingRepo.ListHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	deltas, err := s.transactionRepo.SumDeltas(ctx, accountID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactionRepo.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	discrepancies := []model.Discrepancy{}

	held := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		held[h.Symbol] = h.Shares
	}

	symbols := make([]string, 0, len(deltas)+len(held))
	for symbol := range deltas {
		symbols = append(symbols, symbol)
	}
	for symbol := range held {
		if _, ok := deltas[symbol]; !ok {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		if deltas[symbol] != held[symbol] {
			discrepancies = append(discrepancies, model.Discrepancy{
				AccountID: accountID,
				Symbol:    symbol,
				Kind:      model.DiscrepancyShares,
				Expected:  decimal.NewFromInt(deltas[symbol]),
				Actual:    decimal.NewFromInt(held[symbol]),
			})
		}
	}

	expectedCash := account.InitialCash
	for _, t := range transactions {
		expectedCash = expectedCash.Add(t.CashFlow())
	}
	if !expectedCash.Equal(account.Cash) {
		discrepancies = append(discrepancies, model.Discrepancy{
			AccountID: accountID,
			Kind:      model.DiscrepancyCash,
			Expected:  expectedCash,
			Actual:    account.Cash,
		})
	}

	return discrepancies, nil
}
