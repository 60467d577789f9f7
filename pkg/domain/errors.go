package domain

import (
	"errors"
	"fmt"
)

// Identity store errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant is inactive")
	ErrTenantUserNotFound = errors.New("tenant user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet policy")
)

// Isolation errors
var (
	ErrForbidden          = errors.New("forbidden")
	ErrNoTenant           = errors.New("no tenant resolved")
	ErrIsolationViolation = errors.New("tenant isolation violation")
	ErrRecordNotFound     = errors.New("record not found")
	ErrQuotaExceeded      = errors.New("tenant record quota exceeded")
	ErrDebugUnavailable   = errors.New("unscoped debug mode is not compiled into this build")
)

// Bootstrap errors
var (
	ErrBootstrapVerification = errors.New("bootstrap: password write could not be verified")
	ErrMissingCredential     = errors.New("bootstrap: required credential missing")
)

// ResolutionError is returned when an explicit tenant selector names a
// tenant the identity may not use. It unwraps to ErrForbidden so request
// boundaries can map it to 403 without inspecting the selector.
type ResolutionError struct {
	Selector string
	Reason   string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("tenant selector %q rejected: %s", e.Selector, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return ErrForbidden
}
