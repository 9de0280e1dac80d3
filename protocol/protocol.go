package protocol

import (
	"bytes"
	"math"
)

// Pre-allocated byte slices for comparisons (avoid allocation in hot path)
var (
	spaceBytes = []byte{' '}
)

// Parse decodes the response at the start of buf, which must hold only
// valid bytes (the caller's filled window).
//
// Parse is stateless: it never remembers a cursor between calls. After a
// successful call the caller advances its own cursor by Len() bytes (or by
// ResLen()+ValueRead() plus the terminator when streaming a value).
//
// Response formats:
//
//	VALUE <key> <flags> <bytes> [<cas>]\r\n<data>\r\n
//	<meta code> [<flags>*]\r\n        (VA <size> <flags>*\r\n<data>\r\n)
//	STAT <name> <value>\r\n
//	STORED|EXISTS|DELETED|TOUCHED|NOT_FOUND|NOT_STORED|OK|END\r\n
//	VERSION <text>\r\n
//	<number>\r\n
//	ERROR|CLIENT_ERROR <text>|SERVER_ERROR <text>\r\n
//
// Errors:
//   - ErrShort: the line terminator has not arrived yet
//   - ErrShortValue: the header is complete and returned, the value is not
//   - *ParseError: no grammar matches, the stream is desynchronized
//   - *ValueError: the declared value length cannot be trusted
//
// Nothing is classified before the line terminator is in the buffer, so a
// partial keyword such as "ST" is always ErrShort.
//
// Lines and value blocks are both terminated by "\r\n". A bare "\n" is a
// *ParseError wherever it appears.
func Parse(buf []byte) (Response, error) {
	var r Response

	eol := bytes.IndexByte(buf, '\n')
	if eol < 0 {
		r.Code = StatusShort
		return r, ErrShort
	}

	r.Line = buf[: eol+1 : eol+1]
	if eol == 0 || buf[eol-1] != '\r' {
		return fail(&r, &ParseError{Message: "line not terminated by CRLF"})
	}

	line := buf[: eol-1 : eol-1]
	if len(line) == 0 {
		return fail(&r, &ParseError{Message: "empty response line"})
	}

	keyword, rest, hasRest := bytes.Cut(line, spaceBytes)

	var err error
	if len(keyword) == 2 && isMetaCode(keyword) {
		err = parseMetaLine(&r, line, keyword, rest)
	} else {
		// string(keyword) in a switch does not allocate
		switch string(keyword) {
		case KeywordValue:
			err = parseValueLine(&r, rest)
		case KeywordStat:
			err = parseStatLine(&r, rest, hasRest)
		case KeywordStored, KeywordExists, KeywordDeleted, KeywordTouched,
			KeywordNotFound, KeywordNotStored, KeywordOK:
			err = parseGenericLine(&r, keyword, hasRest)
		case KeywordEnd:
			if hasRest {
				err = &ParseError{Message: "unexpected data after END"}
				break
			}
			r.Type = TypeEnd
			r.Code = StatusEnd
		case KeywordVersion:
			r.Type = TypeVersion
			r.Code = StatusVersion
			r.Text = rest
		case KeywordError:
			r.Type = TypeErrorMessage
			r.Code = StatusError
			r.Text = rest
		case KeywordClientError:
			r.Type = TypeErrorMessage
			r.Code = StatusClientError
			r.Text = rest
		case KeywordServerError:
			r.Type = TypeErrorMessage
			r.Code = StatusServerError
			r.Text = rest
		default:
			err = parseNumericLine(&r, line)
		}
	}
	if err != nil {
		return fail(&r, err)
	}

	if r.HasValue() {
		return readValue(&r, buf)
	}
	return r, nil
}

// ContinueValue consumes the continuation of a value whose header was
// returned with ErrShortValue. buf holds the bytes that arrived after the
// ones already consumed and remaining is Response.Remaining() (or the left
// count of the previous ContinueValue call).
//
// It returns the value bytes found in buf (terminator excluded) and how many
// bytes of the response are still missing. The caller consumes
// remaining-left bytes of buf. ErrShortValue is returned while left > 0.
func ContinueValue(buf []byte, remaining int) (chunk []byte, left int, err error) {
	take := min(len(buf), remaining)

	v := max(min(take, remaining-len(CRLF)), 0)
	chunk = buf[:v:v]

	// Whatever follows the value must be (part of) the terminator
	for i := v; i < take; i++ {
		if buf[i] != CRLF[len(CRLF)-(remaining-i)] {
			return nil, 0, &ParseError{Message: "invalid data block terminator"}
		}
	}

	left = remaining - take
	if left > 0 {
		return chunk, left, ErrShortValue
	}
	return chunk, 0, nil
}

func fail(r *Response, err error) (Response, error) {
	return Response{
		Type: TypeFail,
		Code: StatusOf(err),
		Line: r.Line,
	}, err
}

func isMetaCode(code []byte) bool {
	switch string(code) {
	case MetaHD, MetaVA, MetaEN, MetaNF, MetaNS, MetaEX, MetaMN, MetaME:
		return true
	}
	return false
}

func parseMetaLine(r *Response, line, code, rest []byte) error {
	r.Type = TypeMeta
	r.Meta.Line = line

	switch string(code) {
	case MetaHD, MetaME:
		r.Code = StatusOK
	case MetaVA:
		r.Code = StatusOK

		size, flags, _ := bytes.Cut(bytes.TrimLeft(rest, " "), spaceBytes)
		if len(size) == 0 {
			return &ValueError{Message: "VA response missing size"}
		}
		n, ok := parseLength(size)
		if !ok {
			return &ValueError{Message: "invalid size in VA response"}
		}
		r.ValueLen = n
		rest = flags
	case MetaEN, MetaNF:
		r.Code = StatusNotFound
	case MetaNS:
		r.Code = StatusNotStored
	case MetaEX:
		r.Code = StatusExists
	case MetaMN:
		r.Code = StatusNop
	}

	r.Meta.Flags = bytes.TrimLeft(rest, " ")
	return nil
}

// parseValueLine parses "<key> <flags> <bytes> [<cas>]".
func parseValueLine(r *Response, rest []byte) error {
	var fields [4][]byte
	n, ok := splitFields(rest, fields[:])
	if !ok {
		return &ParseError{Message: "too many tokens in VALUE line"}
	}
	if n < 3 {
		return &ParseError{Message: "VALUE line missing tokens"}
	}

	flags, ok := parseUint(fields[1], 32)
	if !ok {
		return &ParseError{Message: "invalid flags in VALUE line"}
	}

	size, ok := parseLength(fields[2])
	if !ok {
		return &ValueError{Message: "invalid size in VALUE line"}
	}

	var cas uint64
	if n == 4 {
		cas, ok = parseUint(fields[3], 64)
		if !ok {
			return &ParseError{Message: "invalid cas in VALUE line"}
		}
	}

	r.Type = TypeGet
	r.Code = StatusOK
	r.ValueLen = size
	r.Get = GetPayload{
		Key:   fields[0],
		Flags: uint32(flags),
		CAS:   cas,
	}
	return nil
}

// parseStatLine parses "<name> <value>". The value may contain spaces.
func parseStatLine(r *Response, rest []byte, hasRest bool) error {
	if !hasRest {
		return &ParseError{Message: "STAT line missing name"}
	}
	name, value, found := bytes.Cut(rest, spaceBytes)
	if !found || len(name) == 0 {
		return &ParseError{Message: "invalid STAT line format"}
	}

	r.Type = TypeStat
	r.Code = StatusOK
	r.Stat = StatPayload{Name: name, Value: value}
	return nil
}

func parseGenericLine(r *Response, keyword []byte, hasRest bool) error {
	if hasRest {
		return &ParseError{Message: "unexpected data after " + string(keyword)}
	}

	r.Type = TypeGeneric
	switch string(keyword) {
	case KeywordStored:
		r.Code = StatusStored
	case KeywordExists:
		r.Code = StatusExists
	case KeywordDeleted:
		r.Code = StatusDeleted
	case KeywordTouched:
		r.Code = StatusTouched
	case KeywordNotFound:
		r.Code = StatusNotFound
	case KeywordNotStored:
		r.Code = StatusNotStored
	case KeywordOK:
		r.Code = StatusOK
	}
	return nil
}

// parseNumericLine parses the bare number returned by incr/decr. Older
// servers pad the number with trailing spaces.
func parseNumericLine(r *Response, line []byte) error {
	digits := bytes.TrimRight(line, " ")
	if !isDigits(digits) {
		return &ParseError{Message: "unknown response"}
	}
	v, ok := parseUint(digits, 64)
	if !ok {
		return &ValueError{Message: "numeric response overflows uint64"}
	}

	r.Type = TypeNumeric
	r.Code = StatusOK
	r.Number = v
	return nil
}

func readValue(r *Response, buf []byte) (Response, error) {
	start := len(r.Line)
	avail := len(buf) - start
	end := start + r.ValueLen

	if avail >= r.ValueLen+len(CRLF) {
		r.Value = buf[start:end:end]
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return fail(r, &ParseError{Message: "invalid data block terminator"})
		}
		r.tail = len(CRLF)
		return *r, nil
	}

	n := min(avail, r.ValueLen)
	r.Value = buf[start : start+n : start+n]
	r.tail = avail - n
	if r.tail > 0 && buf[start+n] != '\r' {
		return fail(r, &ParseError{Message: "invalid data block terminator"})
	}
	return *r, ErrShortValue
}

// splitFields splits b on runs of spaces into dst without allocating.
// It reports false when b holds more fields than dst can take.
func splitFields(b []byte, dst [][]byte) (int, bool) {
	n := 0
	for {
		b = bytes.TrimLeft(b, " ")
		if len(b) == 0 {
			return n, true
		}
		if n == len(dst) {
			return n, false
		}
		tok, rest, _ := bytes.Cut(b, spaceBytes)
		dst[n] = tok
		n++
		b = rest
	}
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseUint parses an unsigned decimal that fits in bits.
// strconv would allocate the string conversion on every header.
func parseUint(b []byte, bits uint) (uint64, bool) {
	if !isDigits(b) {
		return 0, false
	}
	limit := uint64(1)<<bits - 1
	if bits == 64 {
		limit = math.MaxUint64
	}

	var v uint64
	for _, c := range b {
		d := uint64(c - '0')
		if v > (limit-d)/10 {
			return 0, false
		}
		v = v*10 + d
	}
	return v, true
}

// parseLength parses a declared value length. A leading '-' or anything
// larger than MaxValueLength is rejected.
func parseLength(b []byte) (int, bool) {
	v, ok := parseUint(b, 63)
	if !ok || v > MaxValueLength {
		return 0, false
	}
	return int(v), true
}
