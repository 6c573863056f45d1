package interp

import "fmt"

// ---------------------------------------------------------------------------
// User errors
// ---------------------------------------------------------------------------

// UserError is a (name, message) pair describing an error condition raised
// inside the user language. It is not itself a pseudo-object; the step
// engine turns it into an Error-class object when it is thrown.
type UserError struct {
	Name    string
	Message string
}

var _ error = (*UserError)(nil)

func (e *UserError) Error() string {
	return e.Name + ": " + e.Message
}

func NewReferenceError(msg string) *UserError {
	return &UserError{Name: "ReferenceError", Message: msg}
}

func NewTypeError(msg string) *UserError {
	return &UserError{Name: "TypeError", Message: msg}
}

func NewRangeError(msg string) *UserError {
	return &UserError{Name: "RangeError", Message: msg}
}

func NewSyntaxError(msg string) *UserError {
	return &UserError{Name: "SyntaxError", Message: msg}
}

func NewPermissionError(msg string) *UserError {
	return &UserError{Name: "PermissionError", Message: msg}
}

// ---------------------------------------------------------------------------
// Decode errors
// ---------------------------------------------------------------------------

// DecodeErrorKind classifies snapshot decode failures.
type DecodeErrorKind string

const (
	// DecodeReference marks a dangling record index.
	DecodeReference DecodeErrorKind = "reference"
	// DecodeType marks an unknown type tag or malformed payload.
	DecodeType DecodeErrorKind = "type"
	// DecodeRange marks an unknown native-function ID.
	DecodeRange DecodeErrorKind = "range"
	// DecodeShape marks a malformed top-level record array.
	DecodeShape DecodeErrorKind = "shape"
)

// DecodeError is returned by Restore when a snapshot cannot be decoded.
// Decode failures are all-or-nothing: the target interpreter is left in its
// pre-decode state.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("snapshot decode: %s error: %s", e.Kind, e.Msg)
}

func decodeErrf(kind DecodeErrorKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
