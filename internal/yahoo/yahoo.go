package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Yahoo Finance chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNotFound is returned when Yahoo does not know the requested symbol.
var ErrNotFound = errors.New("yahoo: symbol not found")

// FinanceClient provides methods for fetching price data from the Yahoo Finance chart API.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFinanceClient creates a new Yahoo Finance client.
// An empty baseURL selects DefaultBaseURL; timeout bounds every request.
func NewFinanceClient(baseURL string, timeout time.Duration) *FinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &FinanceClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ParseChart converts a raw Yahoo Finance API response into a structured price chart.
//
// The method performs validation to ensure:
//   - A result is present
//   - Timestamp and close price arrays have matching lengths
//
// Null closes (days without trading data) are skipped.
func (c *FinanceClient) ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("no results returned")
	}
	result := yahooResult.Chart.Result[0]

	chart := PriceChart{
		Symbol:             result.Meta.Symbol,
		Currency:           result.Meta.Currency,
		LongName:           result.Meta.LongName,
		Shortname:          result.Meta.Shortname,
		RegularMarketPrice: result.Meta.RegularMarketPrice,
	}
	if result.Meta.RegularMarketTime > 0 {
		chart.RegularMarketTime = time.Unix(result.Meta.RegularMarketTime, 0).UTC()
	}

	if len(result.Indicators.Quote) == 0 {
		return chart, nil
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}
		chart.Indicators = append(chart.Indicators, Indicators{
			Date:       time.Unix(ts, 0).UTC(),
			PriceClose: *closes[i],
		})
	}

	return chart, nil
}

// LatestPrice returns the most recent price in the chart and the time it applies to.
// The regular market price is preferred; the last daily close is the fallback.
func (c PriceChart) LatestPrice() (float64, time.Time, bool) {
	if c.RegularMarketPrice > 0 {
		return c.RegularMarketPrice, c.RegularMarketTime, true
	}
	if n := len(c.Indicators); n > 0 {
		last := c.Indicators[n-1]
		return last.PriceClose, last.Date, true
	}
	return 0, time.Time{}, false
}

// QueryFiveDaySymbol fetches the last 5 days of daily price data for a symbol,
// which is enough to find the latest available price.
//
// Returns ErrNotFound if Yahoo does not know the symbol.
func (c *FinanceClient) QueryFiveDaySymbol(ctx context.Context, symbol string) (Response, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, url.PathEscape(symbol))
	result, err := c.queryYahoo(ctx, endpoint)
	if err != nil {
		return Response{}, err
	}
	if len(result.Chart.Result) == 0 {
		return Response{}, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	return result, nil
}

// queryYahoo executes a request against the Yahoo Finance API and decodes the response.
//
// The method sets required headers:
//   - User-Agent: Mimics a browser to avoid API blocking
//   - Accept: Requests JSON response format
func (c *FinanceClient) queryYahoo(ctx context.Context, endpoint string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Response{}, fmt.Errorf("yahoo: unexpected status %d", resp.StatusCode)
		}
		return Response{}, err
	}

	if response.Chart.Error != nil {
		if response.Chart.Error.Code == "Not Found" {
			return response, fmt.Errorf("%w: %s", ErrNotFound, response.Chart.Error.Description)
		}
		return response, fmt.Errorf("yahoo error: %s: %s", response.Chart.Error.Code, response.Chart.Error.Description)
	}

	if resp.StatusCode == http.StatusNotFound {
		return response, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return response, fmt.Errorf("yahoo: unexpected status %d", resp.StatusCode)
	}

	return response, nil
}
