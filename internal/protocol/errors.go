// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotConnected      = errors.New("not connected")
	ErrTimeout           = errors.New("timeout")
	ErrIO                = errors.New("i/o failure")
	ErrCanceled          = errors.New("canceled")
	ErrMalformedResponse = errors.New("malformed response")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrInvalidStation    = errors.New("invalid station address")
	ErrInvalidValue      = errors.New("invalid value")
	ErrRejected          = errors.New("command rejected")
)

var kindNames = []struct {
	kind error
	name string
}{
	{ErrNotConnected, "NOT_CONNECTED"},
	{ErrTimeout, "TIMEOUT"},
	{ErrIO, "IO_FAILURE"},
	{ErrCanceled, "CANCELED"},
	{ErrMalformedResponse, "MALFORMED_RESPONSE"},
	{ErrDecodeFailure, "DECODE_FAILURE"},
	{ErrInvalidStation, "INVALID_STATION"},
	{ErrInvalidValue, "INVALID_VALUE"},
	{ErrRejected, "REJECTED"},
}

// Error is a classified protocol failure.
type Error struct {
	Op       string // transact, open, read_pv, ...
	Kind     error
	Err      error
	Response string
}

func (e *Error) Error() string {
	msg := e.Op + ": "
	switch {
	case e.Err == nil:
		msg += e.Kind.Error()
	case errors.Is(e.Err, e.Kind):
		msg += e.Err.Error()
	default:
		msg += e.Kind.Error() + ": " + e.Err.Error()
	}
	if e.Response != "" {
		msg += fmt.Sprintf(" (response %q)", e.Response)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns a stable upper-case name for the error kind, or
// "UNKNOWN" when err carries none of the protocol kinds.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "UNKNOWN"
}

// IsInvalidRequest reports whether err was raised before anything reached
// the wire because the caller's arguments were unusable.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidStation) || errors.Is(err, ErrInvalidValue)
}
