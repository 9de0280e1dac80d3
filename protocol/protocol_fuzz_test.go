package protocol

import (
	"errors"
	"testing"
)

// FuzzParse fuzzes Parse to find crashes and invariant violations.
// Run with: go test -fuzz='^FuzzParse$' -fuzztime=60s ./protocol
func FuzzParse(f *testing.F) {
	// Seed corpus with valid responses covering all grammar families
	f.Add([]byte("VALUE foo 0 5\r\nhello\r\n"))
	f.Add([]byte("VALUE k 0 3 42\r\nabc\r\n"))
	f.Add([]byte("VALUE foo 0 1000\r\n0123456789"))
	f.Add([]byte("STAT pid 12345\r\n"))
	f.Add([]byte("STORED\r\n"))
	f.Add([]byte("NOT_STORED\r\n"))
	f.Add([]byte("END\r\n"))
	f.Add([]byte("VERSION 1.6.21\r\n"))
	f.Add([]byte("42\r\n"))
	f.Add([]byte("ERROR\r\n"))
	f.Add([]byte("CLIENT_ERROR bad data chunk\r\n"))
	f.Add([]byte("SERVER_ERROR out of memory\r\n"))
	f.Add([]byte("HD c123 t456\r\n"))
	f.Add([]byte("VA 5 s5\r\nhello\r\n"))
	f.Add([]byte("MN\r\n"))

	// Seed corpus with edge cases
	f.Add([]byte("ST"))
	f.Add([]byte("\r\n"))
	f.Add([]byte(""))
	f.Add([]byte("VALUE foo 0 -1\r\n"))
	f.Add([]byte("VA 5\r\nhelloXX"))
	f.Add([]byte("VALUE k 0 3\r\nabc\r"))

	f.Fuzz(func(t *testing.T, data []byte) {
		resp, err := Parse(data)

		if resp.ValueRead() > resp.ValueLen {
			t.Errorf("ValueRead %d exceeds ValueLen %d", resp.ValueRead(), resp.ValueLen)
		}

		switch {
		case err == nil:
			if resp.Len() > len(data) {
				t.Errorf("complete response of %d bytes in %d byte buffer", resp.Len(), len(data))
			}
			if resp.Type == TypeNone || resp.Type == TypeFail {
				t.Errorf("unexpected type %v without error", resp.Type)
			}
		case errors.Is(err, ErrShortValue):
			if !resp.HasValue() {
				t.Errorf("short value on a response without value")
			}
			if resp.Remaining() <= 0 {
				t.Errorf("short value with nothing remaining")
			}
		case errors.Is(err, ErrShort):
			if resp.Type != TypeNone {
				t.Errorf("short response classified as %v", resp.Type)
			}
		default:
			if resp.Type != TypeFail {
				t.Errorf("failed response typed %v", resp.Type)
			}
		}
	})
}
