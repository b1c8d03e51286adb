package yahoo

import "time"

// Response represents the raw JSON response structure from the Yahoo Finance chart API.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata (name, currency, regular market price)
//   - Chart.Result[].Timestamp: Unix timestamps for each data point
//   - Chart.Result[].Indicators: Price data arrays (open, close, high, low, volume)
//   - Chart.Error: Optional error object, e.g. {"code": "Not Found", ...} for unknown symbols
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the body of a chart API response.
type Chart struct {
	Result []Result `json:"result"`
	Error  *Error   `json:"error"`
}

// Result holds the data of one symbol.
type Result struct {
	Meta       Meta    `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Meta describes the symbol of a Result.
type Meta struct {
	Currency           string  `json:"currency"`
	Symbol             string  `json:"symbol"`
	ExchangeName       string  `json:"exchangeName"`
	LongName           string  `json:"longName"`
	Shortname          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

// Error is the error object Yahoo returns instead of a result.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// PriceChart represents a parsed and structured price chart from Yahoo Finance.
// This is the application's internal representation after parsing the raw Response.
type PriceChart struct {
	Currency           string       `json:"currency"`
	Symbol             string       `json:"symbol"`
	LongName           string       `json:"longName"`
	Shortname          string       `json:"shortName"`
	RegularMarketPrice float64      `json:"regularMarketPrice"`
	RegularMarketTime  time.Time    `json:"regularMarketTime"`
	Indicators         []Indicators `json:"indicators"`
}

// Indicators represents a single day's closing price for a symbol.
// Days on which Yahoo reports no close are skipped during parsing.
type Indicators struct {
	Date       time.Time
	PriceClose float64
}
