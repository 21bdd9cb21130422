// Package errs tags failures with the category a caller can branch on.
//
// Domain packages return their own typed errors; the pipeline wraps them
// with a Kind so that the CLI can pick an exit code without parsing text.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindCredential Kind = "credential"
	KindFormat     Kind = "format"
	KindColumn     Kind = "column"
	KindParse      Kind = "parse"
	KindNetwork    Kind = "network"
	KindIO         Kind = "io"
)

// Error carries a Kind, the operation that failed and the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with kind and op. A nil err stays nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the outermost Kind attached to err.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps err to a process exit status. 0 means success.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindCredential:
		return 2
	case KindFormat:
		return 3
	case KindColumn:
		return 4
	case KindParse:
		return 5
	case KindNetwork:
		return 6
	case KindIO:
		return 7
	default:
		return 1
	}
}
