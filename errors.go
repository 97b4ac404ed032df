package goRecover

import (
	"errors"
	"fmt"
	"net/http"
)

// User-facing sentinels. Their text is rendered into form templates as is.
var (
	ErrFieldsRequired            = errors.New("All fields are required")
	ErrInvalidIdentifier         = errors.New("Need a valid username or email address")
	ErrNoEmail                   = errors.New("Username does not have an email address; please contact support")
	ErrInvalidEmail              = errors.New("Username's email address is invalid; please contact support")
	ErrPasswordMismatch          = errors.New("Passwords don't match")
	ErrCurrentPassword           = errors.New("Current password is incorrect")
	ErrPasswordPolicy            = errors.New("Password must be at least 10 characters")
	ErrRecoveryTokenInvalid      = errors.New("This recovery link is invalid or has expired")
	ErrRecoveryRateLimited       = errors.New("Too many recovery requests; please try again later")
	ErrInvalidCredentials        = errors.New("Invalid username or password")
	ErrLoginRateLimited          = errors.New("Too many failed login attempts; please try again later")
	ErrAccountNotFound           = errors.New("account not found")
	ErrAccountExists             = errors.New("account already exists")
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	ErrEngineNotReady            = errors.New("engine not ready")
	ErrUnauthorized              = errors.New("unauthorized")
)

// Kind groups errors by how the HTTP layer answers them.
type Kind uint8

const (
	KindDependency Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "dependency"
	}
}

// ValidationError marks input the caller can correct.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a lookup that matched nothing. Status is 404 for
// usernames and 400 for email addresses.
type NotFoundError struct {
	Message string
	Status  int
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Unwrap() error { return ErrAccountNotFound }

// DependencyError wraps a failure of a repository, Redis, or other backend
// collaborator. Op names the failing step.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("goRecover: %s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func newDependencyError(op string, err error) error {
	var dep *DependencyError
	if errors.As(err, &dep) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

// policyError reports the configured minimum length and matches
// ErrPasswordPolicy under errors.Is.
type policyError struct {
	min int
}

func (e policyError) Error() string {
	return fmt.Sprintf("Password must be at least %d characters", e.min)
}

func (e policyError) Is(target error) bool { return target == ErrPasswordPolicy }

func newNotFoundError(message string, status int) error {
	return &NotFoundError{Message: message, Status: status}
}

// KindOf classifies err. Errors the package does not recognize are
// dependency failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindDependency
	}

	var dep *DependencyError
	if errors.As(err, &dep) {
		return KindDependency
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return KindNotFound
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}

	switch {
	case errors.Is(err, ErrRecoveryRateLimited), errors.Is(err, ErrLoginRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrUnauthorized):
		return KindAuth
	case errors.Is(err, ErrRecoveryTokenInvalid),
		errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrFieldsRequired),
		errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrNoEmail),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrCurrentPassword),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrInvalidCredentials):
		return KindValidation
	default:
		return KindDependency
	}
}

// StatusOf maps err to the HTTP status the handlers answer with.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		var nf *NotFoundError
		if errors.As(err, &nf) && nf.Status != 0 {
			return nf.Status
		}
		return http.StatusNotFound
	case KindAuth:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show a user. Dependency errors never leak
// their cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == KindDependency {
		return "Internal error"
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Err.Error()
	}
	return err.Error()
}
