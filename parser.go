package mcmc

import "github.com/pior/mcmc/protocol"

// Parser gates protocol.Parse behind the minimum buffer size of a set of
// options.
type Parser struct {
	minSize int
}

// NewParser returns a Parser for buffers sized for opts.
func NewParser(opts Options) Parser {
	return Parser{minSize: MinBufferSize(opts)}
}

// Parse parses the first response in buf[:n]. len(buf) is the capacity of
// the caller's read buffer and n the count of valid bytes in it.
//
// A buffer smaller than MinBufferSize is rejected with a *protocol.ParseError
// wrapping protocol.ErrBufferTooSmall, whatever it holds.
func (p Parser) Parse(buf []byte, n int) (protocol.Response, error) {
	return p.ParseAt(buf, 0, n)
}

// ParseAt parses the first response in buf[off:n]. The size gate applies
// to the whole buffer, so a caller can walk the responses of one fill by
// advancing off by Response.Len() without compacting.
func (p Parser) ParseAt(buf []byte, off, n int) (protocol.Response, error) {
	if len(buf) < p.minSize {
		return failed(&protocol.ParseError{Message: "read buffer", Err: protocol.ErrBufferTooSmall})
	}
	if n < 0 || n > len(buf) {
		return failed(&protocol.ParseError{Message: "valid byte count out of range"})
	}
	if off < 0 || off > n {
		return failed(&protocol.ParseError{Message: "offset out of range"})
	}
	return protocol.Parse(buf[off:n])
}

func failed(err error) (protocol.Response, error) {
	return protocol.Response{Type: protocol.TypeFail, Code: protocol.StatusOf(err)}, err
}
