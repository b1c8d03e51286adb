package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/testutil"
)

func TestQuoteHandler_Quote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	quotes := testutil.NewMockQuoteProvider().WithPrice("ABC", "12.34").WithFailure("DOWN")
	handler := NewQuoteHandler(testutil.NewTestPortfolioService(t, db, quotes))

	t.Run("returns normalised quote", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/quote/abc", map[string]string{"symbol": " abc "})
		w := httptest.NewRecorder()

		handler.Quote(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var q model.Quote
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&q)

		if q.Symbol != "ABC" {
			t.Errorf("Expected symbol ABC, got %s", q.Symbol)
		}
		if !q.Price.Equal(testutil.MustDecimal(t, "12.34")) {
			t.Errorf("Expected price 12.34, got %s", q.Price)
		}
	})

	tests := []struct {
		name     string
		symbol   string
		wantCode int
	}{
		{name: "unknown symbol", symbol: "NOPE", wantCode: http.StatusNotFound},
		{name: "provider down", symbol: "DOWN", wantCode: http.StatusBadGateway},
		{name: "blank symbol", symbol: " ", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/quote/x", map[string]string{"symbol": tt.symbol})
			w := httptest.NewRecorder()

			handler.Quote(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}
