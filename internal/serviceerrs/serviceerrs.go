package serviceerrs

import (
	"errors"
	"time"
)

var ErrBookingNotFound = errors.New("booking not found")
var ErrLoginTaken = errors.New("login already taken")
var ErrTokenExpired = errors.New("token expired")
var ErrNoContent = errors.New("no content")
var ErrInsufficientCredit = errors.New("insufficient wallet credit")

// IneligibleCancellationError carries the policy reason for a refused
// cancellation. No ledger rows are written when it is returned.
type IneligibleCancellationError struct {
	Reason string
}

func (e *IneligibleCancellationError) Error() string {
	return "cancellation not permitted: " + e.Reason
}

type TooManyRequestsError struct {
	RetryAfter time.Duration
	RPM        uint64
}

func (e *TooManyRequestsError) Error() string {
	return "too many requests"
}

func (e *TooManyRequestsError) Is(target error) bool {
	_, ok := target.(*TooManyRequestsError)
	return ok
}
