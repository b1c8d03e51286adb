package handlers

import (
	"net/http"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/service"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/validation"
)

// AccountHandler handles HTTP requests for account registration.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler with the provided service dependency.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// UsernameCheckResponse reports whether a username can be registered.
type UsernameCheckResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// CreateAccount handles POST requests to register a new account.
// The cash field is optional and defaults to the configured deposit.
//
// Endpoint: POST /api/account
// Request Body: request.CreateAccountRequest
// Response: 201 Created with model.Account
// Error: 400 Bad Request if the body is malformed or fails validation
// Error: 409 Conflict if the username is taken
// Error: 500 Internal Server Error if creation fails
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateAccountRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := validation.ValidateCreateAccount(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateAccount)
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), req.Username, req.Cash)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateAccount)
		return
	}

	response.RespondJSON(w, http.StatusCreated, account)
}

// CheckUsername handles GET requests asking whether a username is still free.
//
// Endpoint: GET /api/account/check?username={username}
// Response: 200 OK with UsernameCheckResponse
// Error: 400 Bad Request if username is missing
// Error: 500 Internal Server Error if the lookup fails
func (h *AccountHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		response.RespondError(w, http.StatusBadRequest, "username is required", nil)
		return
	}

	available, err := h.accountService.UsernameAvailable(r.Context(), username)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateAccount)
		return
	}

	response.RespondJSON(w, http.StatusOK, UsernameCheckResponse{
		Username:  username,
		Available: available,
	})
}
