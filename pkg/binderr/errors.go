package binderr

import (
	"errors"
	"fmt"
)

// Code identifies an error category so callers and tests can match on it
// without comparing messages.
type Code string

const (
	CodeConfiguration   Code = "CONFIGURATION"
	CodeMissingAsset    Code = "MISSING_ASSET"
	CodeUnsupportedNode Code = "UNSUPPORTED_NODE"
	CodeExpression      Code = "EXPRESSION"
	CodeFetch           Code = "FETCH"
	CodeInvalidInput    Code = "INVALID_INPUT"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrConfiguration   = &Error{Code: CodeConfiguration}
	ErrMissingAsset    = &Error{Code: CodeMissingAsset}
	ErrUnsupportedNode = &Error{Code: CodeUnsupportedNode}
	ErrExpression      = &Error{Code: CodeExpression}
	ErrFetch           = &Error{Code: CodeFetch}
	ErrInvalidInput    = &Error{Code: CodeInvalidInput}
)

// Error is the structured error returned by the binding packages. Details
// carries the identity of the offending node, asset, or attribute.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches on Code so sentinels work through wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// With attaches a detail and returns the receiver for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value when present.
func (e *Error) Detail(key string) (any, bool) {
	if e == nil || e.Details == nil {
		return nil, false
	}
	v, ok := e.Details[key]
	return v, ok
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns nil when err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Wrapped: err}
}

func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// Configuration reports a malformed template declaration or binding.
func Configuration(format string, args ...any) *Error {
	return Newf(CodeConfiguration, format, args...)
}

// MissingAsset reports a reference to an asset id absent from its index.
func MissingAsset(assetID string) *Error {
	return Newf(CodeMissingAsset, "asset %q not found", assetID).With("asset_id", assetID)
}

// CodeOf extracts the code of the first *Error in the chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
