package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrInsufficientFunds indicates a withdrawal exceeding the account balance
	ErrInsufficientFunds = errors.New("insufficient_funds")
	// ErrInvalidAmount indicates a non-positive or malformed amount
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrCurrencyMismatch indicates a transaction currency differing from the account's
	ErrCurrencyMismatch = errors.New("currency_mismatch")
	// ErrInvalidPeriod indicates an unknown report period kind
	ErrInvalidPeriod = errors.New("invalid_period")
	// ErrAlreadyAnalyzed indicates the transaction already has a sentiment result
	ErrAlreadyAnalyzed = errors.New("already_analyzed")
	// ErrClassifierUnavailable indicates the external classifier timed out or is down
	ErrClassifierUnavailable = errors.New("classifier_unavailable")
)
