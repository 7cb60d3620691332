// Package services holds the business rules behind the HTTP handlers:
// authentication, catalog management, tutor schedules, bookings, payments
// and notifications.
package services

import (
	"errors"
	"fmt"

	"github.com/harentsoaR/tutor-api/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("account is not verified")
	ErrBlocked            = errors.New("account is blocked")
	ErrForbidden          = errors.New("forbidden")

	ErrOTPExpired      = errors.New("OTP expired")
	ErrOTPInvalid      = errors.New("invalid OTP")
	ErrOTPAttempts     = errors.New("too many OTP attempts, request a new code")
	ErrResendLimit     = errors.New("too many OTP requests, try again later")
	ErrAlreadyVerified = errors.New("account is already verified")

	ErrSlotBooked = store.ErrSlotUnavailable
	ErrNoLessons  = store.ErrNoLessons
	ErrTooLate    = errors.New("booking can no longer be changed")
	ErrBusy       = errors.New("resource is being modified, retry")
)

// InputError is a request that is well-formed but violates a business rule.
// Handlers answer it with 400.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err (or anything it wraps) is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
