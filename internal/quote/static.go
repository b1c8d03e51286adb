package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// StaticProvider serves prices from an in-memory table.
// It is used for local development and demos without network access.
type StaticProvider struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticProvider creates a provider with the given symbol -> price table.
func NewStaticProvider(prices map[string]decimal.Decimal) *StaticProvider {
	p := &StaticProvider{prices: make(map[string]decimal.Decimal, len(prices))}
	for symbol, price := range prices {
		p.prices[NormalizeSymbol(symbol)] = price
	}
	return p
}

// SetPrice changes the price of a symbol.
func (p *StaticProvider) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[NormalizeSymbol(symbol)] = price
}

// Lookup implements Provider.
func (p *StaticProvider) Lookup(_ context.Context, symbol string) (model.Quote, error) {
	symbol = NormalizeSymbol(symbol)

	p.mu.RLock()
	price, ok := p.prices[symbol]
	p.mu.RUnlock()

	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, symbol)
	}

	return model.Quote{
		Symbol:   symbol,
		Price:    price,
		QuotedAt: time.Now().UTC(),
	}, nil
}

// ParseStaticPrices parses a "SYM=price,SYM=price" list.
func ParseStaticPrices(spec string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		symbol, priceStr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid static price %q, expected SYMBOL=PRICE", entry)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(priceStr))
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("invalid static price for %s: %q", symbol, priceStr)
		}
		prices[NormalizeSymbol(symbol)] = price
	}
	return prices, nil
}
