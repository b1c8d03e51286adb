package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/service"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/validation"
)

// PortfolioHandler handles HTTP requests for a single account's portfolio:
// orders, cash, holdings, valuation and the transaction history.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided service dependency.
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

type executeFunc func(ctx context.Context, accountID, symbol string, shares int64) (*model.OrderResult, error)

// Buy handles POST requests to buy shares at the current quote.
//
// Endpoint: POST /api/account/{uuid}/buy
// Request Body: request.OrderRequest
// Response: 200 OK with model.OrderResult
// Error: 400 Bad Request if the order is malformed
// Error: 404 Not Found if the account or symbol is unknown
// Error: 422 Unprocessable Entity if the account cannot afford the order
// Error: 502 Bad Gateway if no quote could be obtained
// Error: 500 Internal Server Error if the order could not be stored
func (h *PortfolioHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.order(w, r, h.portfolioService.ExecuteBuy)
}

// Sell handles POST requests to sell shares at the current quote.
//
// Endpoint: POST /api/account/{uuid}/sell
// Request Body: request.OrderRequest
// Response: 200 OK with model.OrderResult
// Error: 400 Bad Request if the order is malformed
// Error: 404 Not Found if the account or symbol is unknown
// Error: 422 Unprocessable Entity if the account holds too few shares
// Error: 502 Bad Gateway if no quote could be obtained
// Error: 500 Internal Server Error if the order could not be stored
func (h *PortfolioHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.order(w, r, h.portfolioService.ExecuteSell)
}

func (h *PortfolioHandler) order(w http.ResponseWriter, r *http.Request, execute executeFunc) {
	accountID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.OrderRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := validation.ValidateOrder(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToExecuteOrder)
		return
	}

	result, err := execute(r.Context(), accountID, req.Symbol, req.Shares)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToExecuteOrder)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Cash handles GET requests for the cash balance of an account.
//
// Endpoint: GET /api/account/{uuid}/cash
// Response: 200 OK with model.CashResponse
// Error: 404 Not Found if the account does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Cash(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	cash, err := h.portfolioService.GetCash(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveCash)
		return
	}

	response.RespondJSON(w, http.StatusOK, model.CashResponse{
		AccountID: accountID,
		Cash:      cash,
	})
}

// Holdings handles GET requests for the open positions of an account, ordered by symbol.
//
// Endpoint: GET /api/account/{uuid}/holdings
// Response: 200 OK with array of model.Holding
// Error: 404 Not Found if the account does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	holdings, err := h.portfolioService.ListHoldings(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveHoldings)
		return
	}
	if holdings == nil {
		holdings = []model.Holding{}
	}

	response.RespondJSON(w, http.StatusOK, holdings)
}

// Portfolio handles GET requests to value an account at current quotes.
// A valuation with unpriced positions is still a 200; it is flagged partial
// and lists the symbols that could not be priced.
//
// Endpoint: GET /api/account/{uuid}/portfolio
// Response: 200 OK with model.Valuation
// Error: 404 Not Found if the account does not exist
// Error: 500 Internal Server Error if valuation fails
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	valuation, err := h.portfolioService.ValuatePortfolio(r.Context(), accountID)
	if err != nil && !(errors.Is(err, apperrors.ErrPartialValuation) && valuation != nil) {
		respondServiceError(w, r, err, apperrors.ErrFailedToValuatePortfolio)
		return
	}
	if valuation.Positions == nil {
		valuation.Positions = []model.PositionValuation{}
	}

	response.RespondJSON(w, http.StatusOK, valuation)
}

// Transactions handles GET requests for the transaction history of an account, oldest first.
// Results are paginated; pass nextCursor from the previous page to continue.
//
// Endpoint: GET /api/account/{uuid}/transactions?cursor={cursor}&limit={limit}
// Response: 200 OK with model.TransactionPage
// Error: 400 Bad Request if limit is out of range or the cursor is invalid
// Error: 404 Not Found if the account does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "uuid")

	params, err := request.ParsePageParams(r.URL.Query().Get("cursor"), r.URL.Query().Get("limit"), service.MaxPageSize)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	page, err := h.portfolioService.ListTransactionsPage(r.Context(), accountID, params.Cursor, params.Limit)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}
	if page.Transactions == nil {
		page.Transactions = []model.Transaction{}
	}

	response.RespondJSON(w, http.StatusOK, page)
}
