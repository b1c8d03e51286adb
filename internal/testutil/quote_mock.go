package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/quote"
)

// ErrMockProviderDown is returned by MockQuoteProvider for symbols marked as failing.
var ErrMockProviderDown = errors.New("mock quote provider unavailable")

// MockQuoteProvider is an in-memory quote.Provider for tests.
// Unknown symbols fail with apperrors.ErrSymbolNotFound; symbols marked with
// WithFailure fail with ErrMockProviderDown.
type MockQuoteProvider struct {
	mu       sync.Mutex
	prices   map[string]decimal.Decimal
	failures map[string]bool

	// QueryCount tracks how many lookups were made
	QueryCount int
}

// NewMockQuoteProvider creates an empty mock provider.
func NewMockQuoteProvider() *MockQuoteProvider {
	return &MockQuoteProvider{
		prices:   make(map[string]decimal.Decimal),
		failures: make(map[string]bool),
	}
}

// WithPrice sets the price of a symbol.
func (m *MockQuoteProvider) WithPrice(symbol, price string) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[quote.NormalizeSymbol(symbol)] = decimal.RequireFromString(price)
	return m
}

// WithFailure makes lookups of symbol fail as if the provider were unreachable.
func (m *MockQuoteProvider) WithFailure(symbol string) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[quote.NormalizeSymbol(symbol)] = true
	return m
}

// Lookup implements quote.Provider.
func (m *MockQuoteProvider) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueryCount++
	if err := ctx.Err(); err != nil {
		return model.Quote{}, err
	}

	symbol = quote.NormalizeSymbol(symbol)
	if m.failures[symbol] {
		return model.Quote{}, ErrMockProviderDown
	}

	price, ok := m.prices[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, symbol)
	}

	return model.Quote{
		Symbol:   symbol,
		Name:     symbol + " Inc.",
		Price:    price,
		QuotedAt: time.Now().UTC(),
	}, nil
}
