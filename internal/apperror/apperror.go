// Package apperror classifies failures reported by the identity and data
// collaborators so callers can pick a policy per kind.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the category of a collaborator failure.
type Kind int

const (
	// KindAuth covers session query, sign-in and sign-out failures.
	KindAuth Kind = iota + 1
	// KindFetch covers list queries.
	KindFetch
	// KindWrite covers inserts and deletes.
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindFetch:
		return "fetch"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Error is a collaborator failure tagged with its kind and operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with kind and op. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) && existing.Kind == kind && existing.Op == op {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Auth(op string, err error) error  { return New(KindAuth, op, err) }
func Fetch(op string, err error) error { return New(KindFetch, op, err) }
func Write(op string, err error) error { return New(KindWrite, op, err) }

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// OpOf returns the operation name recorded in err, or "".
func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
