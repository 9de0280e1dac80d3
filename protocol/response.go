package protocol

// Response describes a single server response found at the start of a
// caller-owned buffer.
//
// A Response never owns memory: every []byte field is a sub-slice of the
// buffer passed to Parse. It stays valid only as long as the caller does not
// modify, reuse or release that buffer.
//
// Only the payload matching Type is populated; the others are left zero.
type Response struct {
	Type ResponseType
	Code StatusCode

	// Line is the full response line, terminator included.
	Line []byte

	// Value holds the value bytes present in the buffer. It may be shorter
	// than ValueLen when the value is still in flight.
	Value []byte

	// ValueLen is the value length declared by the header. The trailing
	// "\r\n" after the value is not counted.
	ValueLen int

	Get  GetPayload
	Meta MetaPayload
	Stat StatPayload

	// Number is the result of an incr/decr (TypeNumeric).
	Number uint64

	// Text is the version string (TypeVersion) or the message following
	// the error keyword (TypeErrorMessage).
	Text []byte

	// tail counts the value terminator bytes present in the buffer.
	tail int
}

// GetPayload is the payload of a VALUE line.
type GetPayload struct {
	Key   []byte
	Flags uint32
	CAS   uint64 // 0 when the server did not send one
}

// MetaPayload is the payload of a meta response. Flags are not decoded; use
// Flag to look up a single token.
type MetaPayload struct {
	// Line is the response line without its terminator.
	Line []byte

	// Flags is the raw flag token stream after the status code (and after
	// the size for VA responses).
	Flags []byte
}

// StatPayload is the payload of a STAT line.
type StatPayload struct {
	Name  []byte
	Value []byte
}

// ResLen returns the length of the response line, terminator included.
func (r *Response) ResLen() int {
	return len(r.Line)
}

// ValueRead returns how many value bytes are present in the buffer.
func (r *Response) ValueRead() int {
	return len(r.Value)
}

// HasValue reports whether the response announces a value block.
func (r *Response) HasValue() bool {
	switch r.Type {
	case TypeGet:
		return true
	case TypeMeta:
		return len(r.Meta.Line) >= 2 && string(r.Meta.Line[:2]) == MetaVA
	default:
		return false
	}
}

// Len returns the number of bytes the complete response occupies on the
// wire: the line, the value and the value terminator.
func (r *Response) Len() int {
	if !r.HasValue() {
		return len(r.Line)
	}
	return len(r.Line) + r.ValueLen + len(CRLF)
}

// Remaining returns how many bytes of the response (value terminator
// included) were missing from the buffer that was parsed.
func (r *Response) Remaining() int {
	if !r.HasValue() {
		return 0
	}
	return r.ValueLen + len(CRLF) - len(r.Value) - r.tail
}

// GetFields returns the VALUE payload when r is a TypeGet response.
func (r *Response) GetFields() (GetPayload, bool) {
	return r.Get, r.Type == TypeGet
}

// MetaFields returns the meta payload when r is a TypeMeta response.
func (r *Response) MetaFields() (MetaPayload, bool) {
	return r.Meta, r.Type == TypeMeta
}

// StatFields returns the STAT payload when r is a TypeStat response.
func (r *Response) StatFields() (StatPayload, bool) {
	return r.Stat, r.Type == TypeStat
}

// IsError reports whether the server rejected the command.
func (r *Response) IsError() bool {
	return r.Type == TypeErrorMessage
}
