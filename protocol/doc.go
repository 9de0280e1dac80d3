// Package protocol provides a zero-copy, incremental parser for memcached
// responses, covering both the text protocol and the meta protocol.
//
// The parser never owns memory and never reads from a socket. The caller
// fills a buffer by whatever means it likes and hands the valid window to
// Parse, which describes the first response found there with sub-slices of
// that buffer.
//
// # Parsing a stream
//
//	for {
//	    resp, err := protocol.Parse(buf[start:end])
//	    switch {
//	    case errors.Is(err, protocol.ErrShortValue):
//	        // header is usable, value is partial: forward resp.Value, then
//	        // feed the following bytes to ContinueValue
//	    case errors.Is(err, protocol.ErrShort):
//	        // read more bytes after end and retry from start
//	    case err != nil:
//	        // *ParseError or *ValueError: the stream is desynchronized
//	        return err
//	    }
//	    handle(resp)
//	    start += resp.Len()
//	}
//
// # Disambiguation
//
// Responses are only classified once their line terminator is buffered, and
// keywords are compared on whole tokens. A buffer holding "ST" is therefore
// ErrShort rather than a guess between STAT, STORED and a meta response.
//
// # Lifetime
//
// A Response borrows the buffer. It must not be used after the buffer is
// modified, compacted or released.
package protocol
