package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure surfaced by the toolkit matches exactly one of
// these through errors.Is.
var (
	ErrTruncatedInput       = errors.New("truncated input")
	ErrInvalidEncoding      = errors.New("invalid encoding")
	ErrInvalidMnemonic      = errors.New("invalid mnemonic")
	ErrInvalidDerivation    = errors.New("invalid derivation")
	ErrPolicyNotCompilable  = errors.New("policy not compilable")
	ErrNonMiniscriptScript  = errors.New("non-miniscript script")
	ErrUnencodableScript    = errors.New("unencodable script")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrTransactionMismatch  = errors.New("transaction mismatch")
	ErrFieldConflict        = errors.New("field conflict")
	ErrInsufficientData     = errors.New("insufficient data")
	ErrUnsupportedInputType = errors.New("unsupported input type")
	ErrIncompletePsbt       = errors.New("incomplete psbt")
)

var kinds = []error{
	ErrTruncatedInput,
	ErrInvalidEncoding,
	ErrInvalidMnemonic,
	ErrInvalidDerivation,
	ErrPolicyNotCompilable,
	ErrNonMiniscriptScript,
	ErrUnencodableScript,
	ErrInvalidAddress,
	ErrTransactionMismatch,
	ErrFieldConflict,
	ErrInsufficientData,
	ErrUnsupportedInputType,
	ErrIncompletePsbt,
}

// NoOffset marks an Error that does not point at a byte position.
const NoOffset = -1

// Error carries the failing operation and, where it applies, the offending
// field and byte offset.
type Error struct {
	Kind   error
	Op     string
	Field  string
	Offset int
	Err    error
}

// NewError builds an Error without a byte offset.
func NewError(kind error, op, field string, err error) *Error {
	return &Error{Kind: kind, Op: op, Field: field, Offset: NoOffset, Err: err}
}

// Errorf builds an Error whose cause is a formatted message.
func Errorf(kind error, op, field, format string, args ...any) *Error {
	return NewError(kind, op, field, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		if e.Offset >= 0 {
			fmt.Fprintf(&b, " at offset %d", e.Offset)
		}
		b.WriteString(")")
	} else if e.Offset >= 0 {
		fmt.Fprintf(&b, " (at offset %d)", e.Offset)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind of err, or nil when err carries none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// ExitCode maps an error to a process exit status. Kinds are numbered from
// 10 in declaration order; unclassified errors map to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind := KindOf(err)
	for i, k := range kinds {
		if k == kind {
			return 10 + i
		}
	}
	return 1
}
