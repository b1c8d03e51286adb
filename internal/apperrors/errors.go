package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrAccountNotFound indicates that an account with the given ID does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSymbolNotFound is returned by quote providers when a symbol has no quote.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrInvalidAccount indicates account details that cannot be registered.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Order errors are detected before any state is touched.
// They carry enough detail (via wrapping) to be shown to the user as-is.
var (
	// ErrInvalidOrder indicates a malformed order, e.g. a share count that is not a positive integer.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrUnknownSymbol indicates that the quote provider does not know the requested symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrInsufficientFunds indicates that the account does not hold enough cash for a purchase,
	// or that a cash adjustment would leave a negative balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares indicates that a sell cannot be completed
	// because the account does not hold enough shares of the symbol.
	ErrInsufficientShares = errors.New("insufficient shares for sale")
)

// Operation failure errors represent system-level failures.
var (
	// ErrStorageFailure indicates that the underlying store failed while an order was being applied.
	// The unit of work has been rolled back; nothing of the order is visible.
	ErrStorageFailure = errors.New("storage failure")

	// ErrQuoteUnavailable indicates that the quote provider could not be reached.
	ErrQuoteUnavailable = errors.New("quote provider unavailable")

	// ErrPartialValuation indicates that one or more positions could not be priced.
	// It is returned together with a usable valuation and is not fatal.
	ErrPartialValuation = errors.New("partial valuation")

	// ErrInvalidCursor indicates that a pagination cursor could not be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrFailedToRetrieveCash is the client-facing message when a cash balance cannot be read.
	ErrFailedToRetrieveCash = errors.New("failed to retrieve cash")

	// ErrFailedToRetrieveHoldings is the client-facing message when holdings cannot be listed.
	ErrFailedToRetrieveHoldings = errors.New("failed to retrieve holdings")

	// ErrFailedToRetrieveTransactions is the client-facing message when the ledger cannot be read.
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")

	// ErrFailedToValuatePortfolio is the client-facing message when a valuation cannot be built.
	ErrFailedToValuatePortfolio = errors.New("failed to valuate portfolio")

	// ErrFailedToExecuteOrder is the client-facing message when a buy or sell fails unexpectedly.
	ErrFailedToExecuteOrder = errors.New("failed to execute order")

	// ErrFailedToCreateAccount is the client-facing message when an account cannot be created.
	ErrFailedToCreateAccount = errors.New("failed to create account")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrDataInconsistency indicates that the ledger, holdings and cash disagree.
	ErrDataInconsistency = errors.New("data inconsistency detected")
)
