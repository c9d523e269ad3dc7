package v1

import (
	"errors"
	"net/http"

	"github.com/sehyunkim/finbook/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func notFound(w http.ResponseWriter) { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// mapValidationError normalizes domain validation errors into a code and message.
func mapValidationError(err error) (code, msg string) {
	if err == nil {
		return "", ""
	}
	msg = err.Error()
	switch {
	case errors.Is(err, errs.ErrInvalidAmount):
		return "invalid_amount", msg
	case errors.Is(err, errs.ErrCurrencyMismatch):
		return "currency_mismatch", msg
	case errors.Is(err, errs.ErrInvalidPeriod):
		return "invalid_period", msg
	default:
		return "validation_error", msg
	}
}

// writeDomainErr maps sentinel errors from the service layer onto HTTP
// statuses. Anything unmapped is reported as a 500 with a generic message so
// internals do not leak.
func writeDomainErr(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, errs.ErrAlreadyAnalyzed):
		writeErr(w, http.StatusConflict, "transaction already analyzed", "already_analyzed")
	case errors.Is(err, errs.ErrInsufficientFunds):
		writeErr(w, http.StatusUnprocessableEntity, "insufficient funds", "insufficient_funds")
	case errors.Is(err, errs.ErrInvalidAmount):
		unprocessable(w, err.Error(), "invalid_amount")
	case errors.Is(err, errs.ErrCurrencyMismatch):
		unprocessable(w, err.Error(), "currency_mismatch")
	case errors.Is(err, errs.ErrInvalidPeriod):
		unprocessable(w, err.Error(), "invalid_period")
	case errors.Is(err, errs.ErrInvalid):
		toJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrClassifierUnavailable):
		writeErr(w, http.StatusServiceUnavailable, "classifier unavailable", "classifier_unavailable")
	default:
		writeErr(w, http.StatusInternalServerError, fallback, "")
	}
}
