package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/validation"
)

// maxBodyBytes bounds request bodies; every request body in this API is a small JSON object.
const maxBodyBytes = 1 << 16

// errEmptyBody is returned by parseJSON when the request carries no body.
var errEmptyBody = errors.New("request body is empty")

// parseJSON decodes the request body into T, rejecting unknown fields and trailing data.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T

	if r.Body == nil {
		return v, errEmptyBody
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, errEmptyBody
		}
		return v, fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return v, errors.New("invalid request body: unexpected data after JSON object")
	}

	return v, nil
}

// respondServiceError maps a service error onto an HTTP status.
//
// Client errors carry the error text as details. Anything not recognised is
// logged and reported as 500 with the generic fallback message only.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
	case errors.Is(err, apperrors.ErrInvalidOrder):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidOrder.Error(), err.Error())
	case errors.Is(err, apperrors.ErrInvalidAccount):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidAccount.Error(), err.Error())
	case errors.Is(err, apperrors.ErrInvalidCursor):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCursor.Error(), err.Error())
	case errors.Is(err, apperrors.ErrAccountNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrAccountNotFound.Error(), err.Error())
	case errors.Is(err, apperrors.ErrUnknownSymbol):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrUnknownSymbol.Error(), err.Error())
	case errors.Is(err, apperrors.ErrDuplicateEntry):
		response.RespondError(w, http.StatusConflict, apperrors.ErrDuplicateEntry.Error(), err.Error())
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrInsufficientFunds.Error(), err.Error())
	case errors.Is(err, apperrors.ErrInsufficientShares):
		response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrInsufficientShares.Error(), err.Error())
	case errors.Is(err, apperrors.ErrQuoteUnavailable):
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrQuoteUnavailable.Error(), err.Error())
	case errors.Is(err, apperrors.ErrStorageFailure):
		hlog.FromRequest(r).Error().Err(err).Msg(fallback.Error())
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrStorageFailure.Error(), fallback.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg(fallback.Error())
		response.RespondError(w, http.StatusInternalServerError, fallback.Error(), nil)
	}
}
