// Package apperrors defines the sentinel errors the handlers map to HTTP
// statuses. Conflicts abort with no partial state change; not-found is
// skipped in bulk sweeps and reported on direct requests.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrMarketResolved means a second resolution was attempted for a
	// market that already has an outcome on record.
	ErrMarketResolved = errors.New("market already resolved")

	// ErrInvalidOutcome means a manual resolution carried an outcome other
	// than exactly 0 or 1.
	ErrInvalidOutcome = errors.New("outcome must be 0 or 1")

	ErrPredictionNotFound = errors.New("prediction not found")
	ErrForecasterNotFound = errors.New("forecaster not found")
	ErrMarketNotFound     = errors.New("market not found")

	// ErrNotPredictionOwner means a forecaster tried to cancel someone
	// else's prediction.
	ErrNotPredictionOwner = errors.New("not the prediction owner")

	// ErrPredictionNotActive means a lifecycle transition was attempted
	// from a state other than active.
	ErrPredictionNotActive = errors.New("prediction is not active")

	ErrInvalidNonce = errors.New("invalid or expired nonce")
)

// ValidationError is a handler-boundary input rejection. The core assumes
// validated input and never produces these itself.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func Validation(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) || errors.Is(err, ErrInvalidOutcome)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrPredictionNotFound) ||
		errors.Is(err, ErrForecasterNotFound) ||
		errors.Is(err, ErrMarketNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrMarketResolved)
}
