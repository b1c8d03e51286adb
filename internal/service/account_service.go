package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/repository"
)

// AccountService handles account registration.
type AccountService struct {
	accountRepo *repository.AccountRepository
	defaultCash decimal.Decimal
	log         zerolog.Logger
}

// NewAccountService creates a new AccountService.
// New accounts are seeded with defaultCash unless the caller asks for another amount.
func NewAccountService(accountRepo *repository.AccountRepository, defaultCash decimal.Decimal, log zerolog.Logger) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		defaultCash: defaultCash,
		log:         log.With().Str("component", "account").Logger(),
	}
}

// CreateAccount registers an account under username with an initial cash deposit.
// A nil cash selects the default deposit.
//
// Returns apperrors.ErrInvalidAccount for an empty username or a negative deposit,
// and apperrors.ErrDuplicateEntry when the username is taken.
func (s *AccountService) CreateAccount(ctx context.Context, username string, cash *decimal.Decimal) (model.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.Account{}, fmt.Errorf("%w: username is required", apperrors.ErrInvalidAccount)
	}

	deposit := s.defaultCash
	if cash != nil {
		deposit = *cash
	}
	if deposit.IsNegative() {
		return model.Account{}, fmt.Errorf("%w: initial cash must not be negative", apperrors.ErrInvalidAccount)
	}

	account := model.Account{
		ID:          uuid.New().String(),
		Username:    username,
		Cash:        deposit,
		InitialCash: deposit,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.accountRepo.CreateAccount(ctx, &account); err != nil {
		return model.Account{}, err
	}

	s.log.Info().Str("account_id", account.ID).Str("username", username).Msg("Account created")

	return account, nil
}

// UsernameAvailable reports whether username can still be registered.
func (s *AccountService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}
	exists, err := s.accountRepo.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// GetAccount retrieves an account by ID.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	return s.accountRepo.GetAccount(ctx, accountID)
}

// ListAccounts returns every registered account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return s.accountRepo.ListAccounts(ctx)
}
