package extract

import (
	"context"
	"errors"
	"fmt"

	"callscribe/internal/domain"
)

// Kind classifies why an attempt failed.
type Kind string

const (
	KindTimeout          Kind = "timeout"
	KindNavigation       Kind = "navigation"
	KindRedirect         Kind = "redirect"
	KindAuthRequired     Kind = "auth_required"
	KindContainerMissing Kind = "container_missing"
	KindBrowser          Kind = "browser"
	KindInvalidInput     Kind = "invalid_input"
	KindInternal         Kind = "internal"
)

// Error is a classified extraction failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err with a kind. Deadline errors are always reported as timeouts.
func newError(kind Kind, op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first Error in err's chain.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, domain.ErrInvalidURL):
		return KindInvalidInput
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindAuthRequired, KindInvalidInput:
		return false
	default:
		return true
	}
}
