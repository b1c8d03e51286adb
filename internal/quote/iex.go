package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// DefaultIEXBaseURL is the IEX Cloud API host.
const DefaultIEXBaseURL = "https://cloud.iexapis.com"

// IEXProvider prices symbols with an IEX Cloud style quote endpoint:
// GET {base}/stable/stock/{symbol}/quote?token={key}.
type IEXProvider struct {
	client *resty.Client
	apiKey string
}

type iexQuote struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	LatestPrice float64 `json:"latestPrice"`
	LatestTime  int64   `json:"latestUpdate"`
}

// NewIEXProvider creates a provider for an IEX Cloud compatible API.
func NewIEXProvider(baseURL, apiKey string, timeout time.Duration) *IEXProvider {
	if baseURL == "" {
		baseURL = DefaultIEXBaseURL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &IEXProvider{
		client: client,
		apiKey: apiKey,
	}
}

// Lookup implements Provider.
func (p *IEXProvider) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = NormalizeSymbol(symbol)

	var body iexQuote
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("token", p.apiKey).
		SetResult(&body).
		Get("/stable/stock/" + url.PathEscape(symbol) + "/quote")
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactQuery(uerr.URL)
		}
		return model.Quote{}, fmt.Errorf("iex lookup %s: %w", symbol, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, symbol)
	case resp.IsError():
		return model.Quote{}, fmt.Errorf("iex lookup %s: unexpected status %d", symbol, resp.StatusCode())
	}

	if body.LatestPrice <= 0 {
		return model.Quote{}, fmt.Errorf("%w: %s has no price", apperrors.ErrSymbolNotFound, symbol)
	}

	quotedAt := time.Now().UTC()
	if body.LatestTime > 0 {
		quotedAt = time.UnixMilli(body.LatestTime).UTC()
	}

	if body.Symbol != "" {
		symbol = NormalizeSymbol(body.Symbol)
	}

	return model.Quote{
		Symbol:   symbol,
		Name:     body.CompanyName,
		Price:    decimal.NewFromFloat(body.LatestPrice).Round(4),
		QuotedAt: quotedAt,
	}, nil
}

// redactQuery drops the query string, which carries the API token, from a request URL.
func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
