package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Credential errors
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrRefreshRejected = errors.New("refresh token rejected")
	ErrDecodeFailure   = errors.New("access token could not be decoded")
	ErrUnauthorized    = errors.New("unauthorized")

	// Bounded waits
	ErrTimeout = errors.New("wait timed out")

	// Backend errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnexpectedResponse = errors.New("unexpected response from backend")

	// Storage errors
	ErrNotFound = errors.New("not found")
)

// WaitKind names the bounded wait that expired.
type WaitKind string

const (
	WaitGuard       WaitKind = "guard"
	WaitInterceptor WaitKind = "interceptor"
)

// UnauthorizedError is a 401 that could not be recovered by a refresh.
type UnauthorizedError struct {
	RequestID string
	Err       error
}

func (e *UnauthorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s unauthorized: %v", e.RequestID, e.Err)
	}
	return fmt.Sprintf("request %s unauthorized", e.RequestID)
}

func (e *UnauthorizedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Err}
}

// TimeoutError records a bounded wait that hit its ceiling. It is logged, never returned to
// the view layer.
type TimeoutError struct {
	Kind WaitKind
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s wait timed out", e.Kind)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
