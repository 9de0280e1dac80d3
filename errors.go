package mcmc

import (
	"errors"
	"fmt"

	"github.com/pior/mcmc/protocol"
)

var (
	ErrNotConnected     = errors.New("mcmc: not connected")
	ErrAlreadyConnected = errors.New("mcmc: already connected")
	ErrNotConnecting    = errors.New("mcmc: no connect in progress")
	ErrNoAddress        = errors.New("mcmc: no address to connect to")

	// ErrWantRead and ErrWantWrite are scheduling signals, not failures:
	// wait for the socket to become readable/writable and retry.
	ErrWantRead  = errors.New("mcmc: socket would block on read")
	ErrWantWrite = errors.New("mcmc: socket would block on write")
)

// ConnectionError wraps underlying I/O errors from connection operations.
// Used to distinguish network/connection issues from protocol errors.
//
// Common causes:
//   - Name resolution failure
//   - Connection refused or timed out
//   - Connection reset
//
// Connection handling: Connection is already broken, CLOSE and potentially RECONNECT
type ConnectionError struct {
	Op  string // Operation that failed (connect, write, read, ...)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
// Implemented by ConnectionError, protocol.ParseError and protocol.ValueError.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection is a helper function to determine if an error
// requires closing the connection.
//
// Returns false for nil and for the recoverable signals: protocol.ErrShort,
// protocol.ErrShortValue, ErrWantRead and ErrWantWrite.
// Unknown errors are treated conservatively and return true.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, protocol.ErrShort) || errors.Is(err, ErrWantRead) || errors.Is(err, ErrWantWrite) {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
