package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// AccountRepository provides data access methods for the account table.
// It is the store of each account's cash balance.
type AccountRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewAccountRepository creates a new AccountRepository with the provided database connection.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a new AccountRepository scoped to the provided transaction.
func (r *AccountRepository) WithTx(tx *sql.Tx) *AccountRepository {
	return &AccountRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *AccountRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// CreateAccount inserts a new account holding the given cash.
// The cash is recorded both as the current balance and as the initial deposit.
// Returns apperrors.ErrDuplicateEntry when the username is taken.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
        INSERT INTO account (id, username, cash, initial_cash, created_at)
        VALUES (?, ?, ?, ?, ?)
    `

	_, err := r.getQuerier().ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.Cash.String(),
		account.InitialCash.String(),
		FormatTime(account.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %s", apperrors.ErrDuplicateEntry, account.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// GetAccount retrieves a single account by ID.
// Returns apperrors.ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	query := `
        SELECT id, username, cash, initial_cash, created_at
        FROM account
        WHERE id = ?
    `

	var a model.Account
	var createdAtStr string
	err := r.getQuerier().QueryRowContext(ctx, query, accountID).Scan(
		&a.ID,
		&a.Username,
		&a.Cash,
		&a.InitialCash,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to query account table: %w", err)
	}

	a.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Account{}, err
	}

	return a, nil
}

// GetCash returns the current cash balance of an account.
// Returns apperrors.ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetCash(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := r.getQuerier().QueryRowContext(ctx, `SELECT cash FROM account WHERE id = ?`, accountID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, apperrors.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query account cash: %w", err)
	}

	return cash, nil
}

// AdjustCash applies delta to the cash balance and returns the new balance.
// Fails with apperrors.ErrInsufficientFunds, leaving the balance untouched,
// if the result would be negative.
//
// The read and the write are only atomic with respect to other writers when the
// repository runs inside a transaction and the caller holds the account lock.
func (r *AccountRepository) AdjustCash(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	cash, err := r.GetCash(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	updated := cash.Add(delta)
	if updated.IsNegative() {
		return cash, fmt.Errorf("%w: balance %s, required %s", apperrors.ErrInsufficientFunds, cash.StringFixed(2), delta.Neg().StringFixed(2))
	}

	_, err = r.getQuerier().ExecContext(ctx, `UPDATE account SET cash = ? WHERE id = ?`, updated.String(), accountID)
	if err != nil {
		return cash, fmt.Errorf("failed to update account cash: %w", err)
	}

	return updated, nil
}

// UsernameExists reports whether an account with the given username is registered.
func (r *AccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.getQuerier().QueryRowContext(ctx, `SELECT COUNT(*) FROM account WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query account table: %w", err)
	}
	return count > 0, nil
}

// ListAccounts returns every account ordered by creation time.
func (r *AccountRepository) ListAccounts(ctx context.Context) ([]model.Account, error) {
	query := `
        SELECT id, username, cash, initial_cash, created_at
        FROM account
        ORDER BY created_at ASC, id ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query account table: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		var createdAtStr string
		if err := rows.Scan(&a.ID, &a.Username, &a.Cash, &a.InitialCash, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan account table results: %w", err)
		}
		if a.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account table: %w", err)
	}

	return accounts, nil
}
