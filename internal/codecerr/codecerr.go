// Package codecerr defines the error families raised across the codec
// control engine. Each family maps to one exported type so callers can
// recover the W3C DOMException name via errors.As instead of string
// matching on Error().
package codecerr

import "fmt"

// TypeError signals a syntactically invalid argument: a missing required
// field, a zero dimension, an invalid enum value, or a buffer too small
// for its declared size.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return e.Msg }

// Name returns the DOMException-style name implementers must preserve.
func (e *TypeError) Name() string { return "TypeError" }

// NewTypeError builds a TypeError with a formatted message.
func NewTypeError(format string, args ...any) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidStateError signals an operation disallowed in the instance's
// current lifecycle state (encode on unconfigured, double close, load
// twice without a close in between).
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }
func (e *InvalidStateError) Name() string  { return "InvalidStateError" }

// NewInvalidStateError builds an InvalidStateError with a formatted message.
func NewInvalidStateError(format string, args ...any) *InvalidStateError {
	return &InvalidStateError{Msg: fmt.Sprintf(format, args...)}
}

// NotSupportedError is delivered asynchronously via the error callback
// after configure with a syntactically valid but backend-unsupported
// configuration. It transitions the instance to closed.
type NotSupportedError struct {
	Msg string
}

func (e *NotSupportedError) Error() string { return e.Msg }
func (e *NotSupportedError) Name() string  { return "NotSupportedError" }

// NewNotSupportedError builds a NotSupportedError with a formatted message.
func NewNotSupportedError(format string, args ...any) *NotSupportedError {
	return &NotSupportedError{Msg: fmt.Sprintf(format, args...)}
}

// DataError signals malformed input data rejected synchronously, such as
// a non-keyframe chunk as the first decode after configure or reset.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string { return e.Msg }
func (e *DataError) Name() string  { return "DataError" }

// NewDataError builds a DataError with a formatted message.
func NewDataError(format string, args ...any) *DataError {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// EncodingError is delivered asynchronously via the error callback on a
// fatal encoder backend fault. It closes the instance and fails any
// pending flush futures with the same diagnostic.
type EncodingError struct {
	Msg string
	Err error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}
func (e *EncodingError) Name() string  { return "EncodingError" }
func (e *EncodingError) Unwrap() error { return e.Err }

// NewEncodingError builds an EncodingError wrapping an underlying cause.
func NewEncodingError(msg string, err error) *EncodingError {
	return &EncodingError{Msg: msg, Err: err}
}

// DecodingError is the decoder-side counterpart of EncodingError: a fatal
// backend fault (corrupt chunk, channel-count mismatch, sample-rate
// mismatch) delivered asynchronously.
type DecodingError struct {
	Msg string
	Err error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}
func (e *DecodingError) Name() string  { return "EncodingError" } // W3C uses EncodingError for both directions
func (e *DecodingError) Unwrap() error { return e.Err }

// NewDecodingError builds a DecodingError wrapping an underlying cause.
func NewDecodingError(msg string, err error) *DecodingError {
	return &DecodingError{Msg: msg, Err: err}
}

// AbortError signals that a flush future was superseded by reset or
// close before it drained. This is not an error for the instance itself.
type AbortError struct {
	Msg string
}

func (e *AbortError) Error() string { return e.Msg }
func (e *AbortError) Name() string  { return "AbortError" }

// NewAbortError builds an AbortError with a formatted message.
func NewAbortError(format string, args ...any) *AbortError {
	return &AbortError{Msg: fmt.Sprintf(format, args...)}
}

// Named is implemented by every error family in this package; it lets
// callers recover the DOMException-style name without a type switch.
type Named interface {
	error
	Name() string
}
