package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/yahoo"
)

// YahooProvider prices symbols with the Yahoo Finance chart API.
type YahooProvider struct {
	client *yahoo.FinanceClient
}

// NewYahooProvider creates a provider backed by the Yahoo Finance chart API.
func NewYahooProvider(baseURL string, timeout time.Duration) *YahooProvider {
	return &YahooProvider{client: yahoo.NewFinanceClient(baseURL, timeout)}
}

// Lookup implements Provider.
func (p *YahooProvider) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = NormalizeSymbol(symbol)

	resp, err := p.client.QueryFiveDaySymbol(ctx, symbol)
	if errors.Is(err, yahoo.ErrNotFound) {
		return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, symbol)
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("yahoo lookup %s: %w", symbol, err)
	}

	chart, err := p.client.ParseChart(resp)
	if err != nil {
		return model.Quote{}, fmt.Errorf("yahoo lookup %s: %w", symbol, err)
	}

	price, at, ok := chart.LatestPrice()
	if !ok || price <= 0 {
		return model.Quote{}, fmt.Errorf("%w: %s has no price", apperrors.ErrSymbolNotFound, symbol)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	name := chart.LongName
	if name == "" {
		name = chart.Shortname
	}

	return model.Quote{
		Symbol:   symbol,
		Name:     name,
		Price:    decimal.NewFromFloat(price).Round(4),
		QuotedAt: at,
	}, nil
}
