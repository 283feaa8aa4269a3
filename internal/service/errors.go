package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user no longer exists")
	ErrAlreadyLoggedIn    = errors.New("user is already logged in")
	ErrNotLoggedIn        = errors.New("user must log in first")
	ErrOTPNotRequested    = errors.New("otp has not been requested")
	ErrOTPExpired         = errors.New("otp expired")
	ErrIncorrectOTP       = errors.New("incorrect otp")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrMailUnavailable    = errors.New("could not send email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("operation not permitted")
	ErrInvalidImage       = errors.New("invalid image")

	// ErrUnavailable wraps failures to read from a backing store.
	ErrUnavailable        = errors.New("service unavailable")
	// ErrStorageUnavailable wraps failures of the image store.
	ErrStorageUnavailable = errors.New("image storage unavailable")
)

// CooldownError is returned while a previously issued OTP is still valid.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("try again in %d seconds", e.Seconds())
}

// Seconds is the whole number of seconds left before a new OTP may be requested.
func (e *CooldownError) Seconds() int {
	return int(e.Remaining / time.Second)
}

// WriteError reports a database write that did not go through.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "could not perform db operation: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
