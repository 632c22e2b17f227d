package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/greenloop/carbon-market/internal/models"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteDomainError maps the core sentinel errors onto HTTP status and a
// machine-readable code. Unknown errors become a 500 without leaking detail.
func WriteDomainError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	msg := err.Error()
	switch {
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrUnauthorized):
		status, code = http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, models.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, models.ErrInsufficientBalance):
		status, code = http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"
	case errors.Is(err, models.ErrBidTooLow):
		status, code = http.StatusConflict, "BID_TOO_LOW"
	case errors.Is(err, models.ErrListingClosed):
		status, code = http.StatusConflict, "LISTING_CLOSED"
	case errors.Is(err, models.ErrListingUnavailable):
		status, code = http.StatusConflict, "LISTING_UNAVAILABLE"
	case errors.Is(err, models.ErrCreditListed):
		status, code = http.StatusConflict, "INVALID_STATUS"
	case errors.Is(err, models.ErrAlreadyDisputed):
		status, code = http.StatusConflict, "ALREADY_DISPUTED"
	case errors.Is(err, models.ErrAlreadyResolved):
		status, code = http.StatusConflict, "ALREADY_RESOLVED"
	case errors.Is(err, models.ErrInvalidStatus):
		status, code = http.StatusConflict, "INVALID_STATUS"
	default:
		msg = "internal error"
	}
	WriteError(w, status, code, msg, nil)
}
