package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/service"
)

var errFailedToQuote = errors.New("failed to retrieve quote")

// QuoteHandler serves current quotes for symbols.
type QuoteHandler struct {
	portfolioService *service.PortfolioService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(portfolioService *service.PortfolioService) *QuoteHandler {
	return &QuoteHandler{
		portfolioService: portfolioService,
	}
}

// Quote handles GET requests for the current price of a symbol.
//
// Endpoint: GET /api/quote/{symbol}
// Response: 200 OK with model.Quote
// Error: 404 Not Found if the symbol is unknown
// Error: 502 Bad Gateway if the quote provider is unavailable
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.portfolioService.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		respondServiceError(w, r, err, errFailedToQuote)
		return
	}

	response.RespondJSON(w, http.StatusOK, q)
}
