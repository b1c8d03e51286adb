package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// TransactionRepository provides data access methods for the ledger_transaction table.
// The ledger is append-only: rows are inserted once and never updated or deleted.
// Reads always return transactions oldest first, in ledger (seq) order.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a new TransactionRepository scoped to the provided transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TransactionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Append writes a transaction to the ledger and sets its Seq.
// No business validation happens here; callers validate before mutating anything.
func (r *TransactionRepository) Append(ctx context.Context, t *model.Transaction) error {
	query := `
        INSERT INTO ledger_transaction (id, account_id, symbol, shares, price, total, executed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	result, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.AccountID,
		t.Symbol,
		t.Shares,
		t.Price.String(),
		t.Total.String(),
		FormatTime(t.ExecutedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction sequence: %w", err)
	}
	t.Seq = seq

	return nil
}

// LastExecutedAt returns the execution time of the account's most recent transaction,
// or the zero time if the account has none.
func (r *TransactionRepository) LastExecutedAt(ctx context.Context, accountID string) (time.Time, error) {
	var executedAtStr string
	err := r.getQuerier().QueryRowContext(ctx,
		`SELECT executed_at FROM ledger_transaction WHERE account_id = ? ORDER BY seq DESC LIMIT 1`,
		accountID,
	).Scan(&executedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last transaction: %w", err)
	}

	return ParseTime(executedAtStr)
}

// ListTransactions returns the full ledger of an account, oldest first.
// Returns an empty slice if the account has no transactions.
func (r *TransactionRepository) ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	query := `
        SELECT seq, id, account_id, symbol, shares, price, total, executed_at
        FROM ledger_transaction
        WHERE account_id = ?
        ORDER BY seq ASC
    `
	return r.queryTransactions(ctx, query, accountID)
}

// ListTransactionsAfter returns at most limit transactions of an account whose
// sequence number is greater than afterSeq, oldest first.
func (r *TransactionRepository) ListTransactionsAfter(ctx context.Context, accountID string, afterSeq int64, limit int) ([]model.Transaction, error) {
	query := `
        SELECT seq, id, account_id, symbol, shares, price, total, executed_at
        FROM ledger_transaction
        WHERE account_id = ? AND seq > ?
        ORDER BY seq ASC
        LIMIT ?
    `
	return r.queryTransactions(ctx, query, accountID, afterSeq, limit)
}

// SumDeltas returns the net share delta per symbol for an account.
// Symbols whose deltas cancel out are included with a zero sum.
func (r *TransactionRepository) SumDeltas(ctx context.Context, accountID string) (map[string]int64, error) {
	rows, err := r.getQuerier().QueryContext(ctx,
		`SELECT symbol, SUM(shares) FROM ledger_transaction WHERE account_id = ? GROUP BY symbol`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction deltas: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int64)
	for rows.Next() {
		var symbol string
		var sum int64
		if err := rows.Scan(&symbol, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan transaction deltas: %w", err)
		}
		sums[symbol] = sum
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction deltas: %w", err)
	}

	return sums, nil
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		var executedAtStr string

		err := rows.Scan(
			&t.Seq,
			&t.ID,
			&t.AccountID,
			&t.Symbol,
			&t.Shares,
			&t.Price,
			&t.Total,
			&executedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}

		t.ExecutedAt, err = ParseTime(executedAtStr)
		if err != nil {
			return nil, err
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}
