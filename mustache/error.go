package mustache

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrUnclosedSection    = NewError("unclosed section")
	ErrUnmatchedClose     = NewError("unmatched closing tag")
	ErrUnterminatedTag    = NewError("unterminated tag")
	ErrEmptyTag           = NewError("empty tag")
	ErrMalformedDelimiter = NewError("malformed delimiter")
	ErrInvalidName        = NewError("invalid name")
	ErrPragmaRequired     = NewError("tag requires pragma")
	ErrUnknownPragma      = NewError("unknown pragma")
	ErrMaxDepthExceeded   = NewError("maximum partial depth exceeded")
	ErrFilterNotFound     = NewError("filter not found")
	ErrFilterInvalid      = NewError("filter is not a one-argument function")
	ErrFilterFailed       = NewError("filter failed")
	ErrLambda             = NewError("lambda failed")
	ErrPartial            = NewError("partial lookup failed")
	ErrReadInput          = NewError("failed to read input")
	ErrWriteOutput        = NewError("failed to write output")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an [Error] derived from the same sentinel.
// Values returned by [Error.Wrap] and [Error.With] keep the sentinel message,
// so errors.Is(err, ErrFilterNotFound) holds for any of them.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}

	return e.msg != "" && e.msg == t.msg
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.Any("cause", e.err))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs,
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// CompileError reports a template that could not be compiled.
// The position refers to the tag that triggered the failure.
type CompileError struct {
	Err    error
	Name   string // Template name, may be empty
	Line   int    // 1-based
	Column int    // 1-based, in bytes
}

func newCompileError(err *Error, name string, line, col int) *CompileError {
	return &CompileError{Err: err, Name: name, Line: line, Column: col}
}

// Error implements the error interface.
//
// The format is "<name>:<line>:<column>: <reason>", with the name omitted
// when the template is anonymous.
func (e *CompileError) Error() string {
	var b strings.Builder

	if e.Name != "" {
		b.WriteString(e.Name)
		b.WriteByte(':')
	}

	b.WriteString(strconv.Itoa(e.Line))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(e.Column))
	b.WriteString(": ")

	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("compile error")
	}

	return b.String()
}

// Unwrap returns the sentinel describing the failure.
func (e *CompileError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *CompileError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("line", e.Line),
		slog.Int("column", e.Column),
	}

	if e.Name != "" {
		attrs = append(attrs, slog.String("template", e.Name))
	}

	if e.Err != nil {
		attrs = append(attrs, slog.Any("error", e.Err))
	}

	return slog.GroupValue(attrs...)
}
