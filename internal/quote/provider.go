// Package quote supplies current prices to the portfolio engine.
//
// The engine only depends on the Provider interface. Concrete providers wrap the
// Yahoo Finance chart API, an IEX Cloud style REST API, or a fixed price table.
package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/config"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// Provider looks up the current price of a symbol.
//
// Lookup returns an error wrapping apperrors.ErrSymbolNotFound when the symbol is unknown.
// Any other error means the provider could not answer.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (model.Quote, error)
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// New builds the provider selected in the configuration, wrapped so that concurrent
// lookups of the same symbol share a single upstream request.
func New(cfg config.QuoteConfig, log zerolog.Logger) (Provider, error) {
	var p Provider

	switch cfg.Provider {
	case "yahoo":
		p = NewYahooProvider(cfg.BaseURL, cfg.Timeout)
	case "iex":
		p = NewIEXProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	case "static":
		prices, err := ParseStaticPrices(cfg.StaticPrices)
		if err != nil {
			return nil, err
		}
		p = NewStaticProvider(prices)
	default:
		return nil, fmt.Errorf("unknown quote provider %q", cfg.Provider)
	}

	log.Info().Str("provider", cfg.Provider).Msg("Quote provider configured")

	return NewSharedProvider(p), nil
}
