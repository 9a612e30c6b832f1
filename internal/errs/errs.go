// internal/errs/errs.go
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry decisions and CLI exit reporting.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindTransport     Kind = "transport"
	KindDerivation    Kind = "derivation"
)

// Sentinel causes shared by the ledger and the resource registry.
var (
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInvalidConfig           = errors.New("invalid bonding curve configuration")
	ErrAlreadyInitialized      = errors.New("ico already initialized for this owner")
	ErrInsufficientSupply      = errors.New("not enough tokens available for sale")
	ErrInsufficientCirculation = errors.New("not enough tokens in circulation")
	ErrInsufficientEscrow      = errors.New("insufficient escrow balance")
	ErrFeeMismatch             = errors.New("payment does not match the access fee")
	ErrResourceNotFound        = errors.New("resource not found")
	ErrAccountNotFound         = errors.New("account not found")
	ErrUnauthorized            = errors.New("requester is not the owner")
)

// Error carries the failure kind alongside the wrapped cause. Op names the
// operation that failed, e.g. "ledger.buy".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a fresh request can reasonably succeed without
// operator intervention. Validation failures need corrected input and
// not-found failures need remediation first, so neither counts here.
func (e *Error) Retryable() bool { return e.Kind == KindTransport }

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation is shorthand for the most common wrapping in the ledger.
func Validation(op string, err error) *Error { return E(KindValidation, op, err) }

// KindOf extracts the Kind from err, or empty string if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is classified as retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
