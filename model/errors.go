package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindFormat        Kind = "format_error"
	KindTranscription Kind = "transcription_error"
	KindUpstream      Kind = "upstream_error"
	KindSynthesis     Kind = "synthesis_error"
	KindInternal      Kind = "internal_error"
)

// Error is a classified pipeline failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error. err keeps its stack trace if it has one.
func E(kind Kind, op string, err error) error {
	if err != nil {
		err = errors.WithStack(err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Ef builds a classified error from a message.
func Ef(kind Kind, op string, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// KindOf returns the kind of the first classified error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
