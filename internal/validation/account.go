package validation

import (
	"strings"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/request"
)

// MaxUsernameLength matches the width of the username column.
const MaxUsernameLength = 100

// ValidateCreateAccount validates an account registration request.
//
// Required fields:
//   - username: non-blank, at most MaxUsernameLength characters
//
// Optional fields (validated if provided):
//   - cash: must not be negative
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateAccount(req request.CreateAccountRequest) error {
	errors := make(map[string]string)

	username := strings.TrimSpace(req.Username)
	if username == "" {
		errors["username"] = "username is required"
	} else if len(username) > MaxUsernameLength {
		errors["username"] = "username is too long"
	}

	if req.Cash != nil && req.Cash.IsNegative() {
		errors["cash"] = "cash must not be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateOrder validates a buy or sell request.
//
// Required fields:
//   - symbol: non-blank, at most 16 characters
//   - shares: a positive integer
func ValidateOrder(req request.OrderRequest) error {
	errors := make(map[string]string)

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		errors["symbol"] = "symbol is required"
	} else if len(symbol) > 16 {
		errors["symbol"] = "symbol is too long"
	}

	if req.Shares <= 0 {
		errors["shares"] = "shares must be a positive integer"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
