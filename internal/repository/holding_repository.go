package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// AveragePricePlaces is the number of decimal places kept for the average price per share.
const AveragePricePlaces = 6

// HoldingRepository provides data access methods for the holding table.
// A holding aggregates shares and cost basis per (account, symbol); rows never carry zero shares.
type HoldingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// WithTx returns a new HoldingRepository scoped to the provided transaction.
func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *HoldingRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetHolding retrieves the holding of one symbol for an account.
// Returns nil without error when the account holds no shares of the symbol.
func (r *HoldingRepository) GetHolding(ctx context.Context, accountID, symbol string) (*model.Holding, error) {
	query := `
        SELECT account_id, symbol, shares, avg_price, cost_basis, last_price, last_priced_at, updated_at
        FROM holding
        WHERE account_id = ? AND symbol = ?
    `

	h, err := scanHolding(r.getQuerier().QueryRowContext(ctx, query, accountID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &h, nil
}

// GetShares returns the number of shares of symbol held by the account, 0 if absent.
func (r *HoldingRepository) GetShares(ctx context.Context, accountID, symbol string) (int64, error) {
	var shares int64
	err := r.getQuerier().QueryRowContext(ctx,
		`SELECT shares FROM holding WHERE account_id = ? AND symbol = ?`,
		accountID, symbol,
	).Scan(&shares)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query holding shares: %w", err)
	}

	return shares, nil
}

// ApplyDelta adds shareDelta shares of symbol at price to the account's holding.
//
// Buys (positive delta) create the row when needed and recompute the average price as
// a weighted average of the old position and the purchase. Sells (negative delta) leave the
// average price unchanged and delete the row when the share count reaches exactly zero, in
// which case nil is returned. The cost basis is always average price times shares held, so a
// partial sell reduces it to the remaining shares at the unchanged average.
//
// Fails with apperrors.ErrInsufficientShares if a sell exceeds the shares held, and with
// apperrors.ErrInvalidOrder for a zero delta.
func (r *HoldingRepository) ApplyDelta(ctx context.Context, accountID, symbol string, shareDelta int64, price decimal.Decimal, at time.Time) (*model.Holding, error) {
	if shareDelta == 0 {
		return nil, fmt.Errorf("%w: share delta must not be zero", apperrors.ErrInvalidOrder)
	}

	current, err := r.GetHolding(ctx, accountID, symbol)
	if err != nil {
		return nil, err
	}

	if shareDelta > 0 {
		return r.addShares(ctx, accountID, symbol, current, shareDelta, price, at)
	}
	return r.removeShares(ctx, accountID, symbol, current, -shareDelta, at)
}

func (r *HoldingRepository) addShares(ctx context.Context, accountID, symbol string, current *model.Holding, added int64, price decimal.Decimal, at time.Time) (*model.Holding, error) {
	purchase := price.Mul(decimal.NewFromInt(added))

	if current == nil {
		h := model.Holding{
			AccountID:    accountID,
			Symbol:       symbol,
			Shares:       added,
			AveragePrice: price.Round(AveragePricePlaces),
			CostBasis:    purchase,
			UpdatedAt:    at,
		}
		query := `
            INSERT INTO holding (account_id, symbol, shares, avg_price, cost_basis, updated_at)
            VALUES (?, ?, ?, ?, ?, ?)
        `
		_, err := r.getQuerier().ExecContext(ctx, query,
			h.AccountID,
			h.Symbol,
			h.Shares,
			h.AveragePrice.String(),
			h.CostBasis.String(),
			FormatTime(at),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert holding: %w", err)
		}
		return &h, nil
	}

	h := *current
	h.Shares = current.Shares + added
	h.CostBasis = current.CostBasis.Add(purchase)
	h.AveragePrice = h.CostBasis.DivRound(decimal.NewFromInt(h.Shares), AveragePricePlaces)
	h.UpdatedAt = at

	if err := r.updateShares(ctx, h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HoldingRepository) removeShares(ctx context.Context, accountID, symbol string, current *model.Holding, removed int64, at time.Time) (*model.Holding, error) {
	held := int64(0)
	if current != nil {
		held = current.Shares
	}
	if removed > held {
		return nil, fmt.Errorf("%w: %s held %d, requested %d", apperrors.ErrInsufficientShares, symbol, held, removed)
	}

	if removed == held {
		_, err := r.getQuerier().ExecContext(ctx,
			`DELETE FROM holding WHERE account_id = ? AND symbol = ?`,
			accountID, symbol,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to delete holding: %w", err)
		}
		return nil, nil
	}

	h := *current
	h.Shares = held - removed
	h.CostBasis = h.AveragePrice.Mul(decimal.NewFromInt(h.Shares))
	h.UpdatedAt = at

	if err := r.updateShares(ctx, h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HoldingRepository) updateShares(ctx context.Context, h model.Holding) error {
	query := `
        UPDATE holding
        SET shares = ?, avg_price = ?, cost_basis = ?, updated_at = ?
        WHERE account_id = ? AND symbol = ?
    `
	_, err := r.getQuerier().ExecContext(ctx, query,
		h.Shares,
		h.AveragePrice.String(),
		h.CostBasis.String(),
		FormatTime(h.UpdatedAt),
		h.AccountID,
		h.Symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	return nil
}

// ListHoldings returns all holdings of an account ordered by symbol.
// Returns an empty slice if the account holds nothing.
func (r *HoldingRepository) ListHoldings(ctx context.Context, accountID string) ([]model.Holding, error) {
	query := `
        SELECT account_id, symbol, shares, avg_price, cost_basis, last_price, last_priced_at, updated_at
        FROM holding
        WHERE account_id = ?
        ORDER BY symbol ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// UpdateLastPrice records the latest known price of a holding.
// A holding that was closed in the meantime is silently skipped.
func (r *HoldingRepository) UpdateLastPrice(ctx context.Context, accountID, symbol string, price decimal.Decimal, at time.Time) error {
	_, err := r.getQuerier().ExecContext(ctx,
		`UPDATE holding SET last_price = ?, last_priced_at = ? WHERE account_id = ? AND symbol = ?`,
		price.String(), FormatTime(at), accountID, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding price: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (model.Holding, error) {
	var h model.Holding
	var lastPrice, lastPricedAt sql.NullString
	var updatedAtStr string

	err := row.Scan(
		&h.AccountID,
		&h.Symbol,
		&h.Shares,
		&h.AveragePrice,
		&h.CostBasis,
		&lastPrice,
		&lastPricedAt,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, err
	}
	if err != nil {
		return model.Holding{}, fmt.Errorf("failed to scan holding table results: %w", err)
	}

	if h.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Holding{}, err
	}

	if lastPrice.Valid {
		p, err := decimal.NewFromString(lastPrice.String)
		if err != nil {
			return model.Holding{}, fmt.Errorf("failed to parse last price: %w", err)
		}
		h.LastPrice = &p
	}
	if lastPricedAt.Valid {
		t, err := ParseTime(lastPricedAt.String)
		if err != nil {
			return model.Holding{}, err
		}
		h.LastPricedAt = &t
	}

	return h, nil
}
