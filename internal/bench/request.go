package bench

import (
	"strconv"
	"strings"

	"github.com/pior/mcmc/protocol"
)

// InvalidKeyError is returned when a key fails validation.
//
// Connection handling: Connection is still valid, operation was rejected client-side
type InvalidKeyError struct {
	Message string
}

func (e *InvalidKeyError) Error() string {
	return e.Message
}

// ShouldCloseConnection returns false - nothing was sent
func (e *InvalidKeyError) ShouldCloseConnection() bool {
	return false
}

// ValidateKey checks that key is 1-250 bytes without whitespace.
func ValidateKey(key string) error {
	switch {
	case len(key) == 0:
		return &InvalidKeyError{Message: "key is empty"}
	case len(key) > protocol.MaxKeyLength:
		return &InvalidKeyError{Message: "key exceeds maximum length of 250 bytes"}
	case strings.ContainsAny(key, " \t\r\n"):
		return &InvalidKeyError{Message: "key contains whitespace"}
	}
	return nil
}

// AppendGet appends "mg <key> <flags>*\r\n" to dst.
func AppendGet(dst []byte, key string, flags ...byte) []byte {
	dst = append(dst, "mg "...)
	dst = append(dst, key...)
	dst = appendFlags(dst, flags)
	return append(dst, protocol.CRLF...)
}

// AppendSetHeader appends the "ms <key> <size> <flags>*\r\n" command line.
// The data block and its terminator are sent as separate segments.
func AppendSetHeader(dst []byte, key string, size int, flags ...byte) []byte {
	dst = append(dst, "ms "...)
	dst = append(dst, key...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(size), 10)
	dst = appendFlags(dst, flags)
	return append(dst, protocol.CRLF...)
}

func appendFlags(dst []byte, flags []byte) []byte {
	for _, f := range flags {
		dst = append(dst, ' ', f)
	}
	return dst
}
