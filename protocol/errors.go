package protocol

import (
	"errors"
	"fmt"
)

// Parser outcomes. These help callers decide between waiting for more bytes
// and dropping the connection.

// ErrShort is returned when the buffer does not yet hold a complete
// response. It is fully recoverable: append more bytes after the ones
// already buffered and call Parse again on the same start position.
var ErrShort = errors.New("protocol: short response")

// ErrShortValue is returned together with a valid header when the value
// block is not fully buffered. The returned Response already describes the
// value bytes that are present. errors.Is(ErrShortValue, ErrShort) is true.
var ErrShortValue = fmt.Errorf("%w: value incomplete", ErrShort)

// ErrBufferTooSmall is wrapped by the ParseError returned for buffers below
// the minimum buffer size.
var ErrBufferTooSmall = errors.New("buffer below minimum size")

// ParseError represents bytes that match no known response grammar.
// The byte stream is desynchronized at this position.
//
// Connection handling: CLOSE connection
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ValueError represents a value-bearing header whose declared length is
// negative, unparsable or out of range.
//
// Connection handling: CLOSE connection
type ValueError struct {
	Message string
	Err     error
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return "value error: " + e.Message + ": " + e.Err.Error()
	}
	return "value error: " + e.Message
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the value length cannot be trusted
func (e *ValueError) ShouldCloseConnection() bool {
	return true
}

// StatusOf maps a Parse error to the parser-internal status marker.
func StatusOf(err error) StatusCode {
	var (
		pe *ParseError
		ve *ValueError
	)
	switch {
	case err == nil:
		return StatusNone
	case errors.Is(err, ErrShort):
		return StatusShort
	case errors.As(err, &ve):
		return StatusValue
	case errors.As(err, &pe):
		return StatusParse
	default:
		return StatusParse
	}
}
