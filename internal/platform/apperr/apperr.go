// Package apperr defines the error taxonomy shared by all domain services.
// Services return *Error values; handlers translate them to HTTP statuses
// with Status. Every error is surfaced to the caller — nothing is swallowed
// and every operation stays retryable by re-invocation.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Kind classifies an error for callers and for HTTP mapping.
type Kind int

const (
	// Validation: malformed or missing required input.
	Validation Kind = iota
	// Authorization: the actor lacks rights for the operation.
	Authorization
	// InvalidState: the entity is not in a state that permits the operation.
	InvalidState
	// InvalidTransition: a state-machine edge that does not exist.
	InvalidTransition
	// NotFound: the referenced entity does not exist.
	NotFound
	// Transient: backend/network unavailability; safe to retry.
	Transient
	// Orphaned: a compound write partially succeeded and needs reconciliation.
	Orphaned
	// Internal: anything else.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authorization:
		return "authorization"
	case InvalidState:
		return "invalid_state"
	case InvalidTransition:
		return "invalid_transition"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	case Orphaned:
		return "orphaned"
	default:
		return "internal"
	}
}

// Error carries a kind, a user-facing message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two apperr values by kind, so errors.Is(err, apperr.New(k, ""))
// style comparisons and KindOf both work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a kinded error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// FromDB normalizes datastore errors: missing rows become NotFound and
// context expiry becomes Transient so callers can retry.
func FromDB(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return New(NotFound, "%s not found", resource)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Wrap(Transient, err, "%s query timed out", resource)
	default:
		return err
	}
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Authorization:
		return http.StatusForbidden
	case InvalidState, InvalidTransition:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Transient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
