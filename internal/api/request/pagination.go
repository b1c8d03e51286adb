package request

import (
	"fmt"
	"strconv"
	"strings"
)

// PageParams holds the parsed pagination parameters of a history request.
type PageParams struct {
	Cursor string
	Limit  int
}

// ParsePageParams extracts pagination parameters from query parameters.
//
// Validation rules:
//   - cursor: opaque token from a previous page, passed through unchanged
//   - limit: integer between 1 and maxLimit; 0 (the default) lets the service pick
//
// Returns an error if limit is not a number or out of range.
func ParsePageParams(cursorParam, limitParam string, maxLimit int) (PageParams, error) {
	params := PageParams{Cursor: strings.TrimSpace(cursorParam)}

	if limitParam == "" {
		return params, nil
	}

	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		return params, fmt.Errorf("invalid limit: %s", limitParam)
	}
	if limit < 1 || limit > maxLimit {
		return params, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	params.Limit = limit

	return params, nil
}
