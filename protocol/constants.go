package protocol

import "math"

// ResponseType tags which grammar family a response belongs to and,
// with it, which payload of Response is valid.
type ResponseType int

const (
	TypeNone         ResponseType = iota // nothing classified yet
	TypeGet                              // VALUE <key> <flags> <bytes> [<cas>]
	TypeMeta                             // HD, VA, EN, NF, NS, EX, MN, ME
	TypeStat                             // STAT <name> <value>
	TypeGeneric                          // STORED, EXISTS, DELETED, ...
	TypeEnd                              // END
	TypeVersion                          // VERSION <text>
	TypeNumeric                          // incr/decr result
	TypeErrorMessage                     // ERROR, CLIENT_ERROR, SERVER_ERROR
	TypeFail                             // garbage, see the returned error
)

var responseTypeNames = [...]string{
	TypeNone:         "NONE",
	TypeGet:          "GET",
	TypeMeta:         "META",
	TypeStat:         "STAT",
	TypeGeneric:      "GENERIC",
	TypeEnd:          "END",
	TypeVersion:      "VERSION",
	TypeNumeric:      "NUMERIC",
	TypeErrorMessage: "ERROR_MESSAGE",
	TypeFail:         "FAIL",
}

func (t ResponseType) String() string {
	if t < 0 || int(t) >= len(responseTypeNames) {
		return "UNKNOWN"
	}
	return responseTypeNames[t]
}

// StatusCode is the fine-grained outcome carried by a response.
type StatusCode int

const (
	StatusNone StatusCode = iota
	StatusStored
	StatusExists
	StatusDeleted
	StatusTouched
	StatusNotFound
	StatusNotStored
	StatusOK
	StatusNop
	StatusEnd
	StatusVersion
	StatusError
	StatusClientError
	StatusServerError

	// Parser-internal markers, never sent by a server.
	StatusShort
	StatusParse
	StatusValue
)

var statusCodeNames = [...]string{
	StatusNone:        "NONE",
	StatusStored:      "STORED",
	StatusExists:      "EXISTS",
	StatusDeleted:     "DELETED",
	StatusTouched:     "TOUCHED",
	StatusNotFound:    "NOT_FOUND",
	StatusNotStored:   "NOT_STORED",
	StatusOK:          "OK",
	StatusNop:         "NOP",
	StatusEnd:         "END",
	StatusVersion:     "VERSION",
	StatusError:       "ERROR",
	StatusClientError: "CLIENT_ERROR",
	StatusServerError: "SERVER_ERROR",
	StatusShort:       "SHORT",
	StatusParse:       "PARSE",
	StatusValue:       "VALUE",
}

func (c StatusCode) String() string {
	if c < 0 || int(c) >= len(statusCodeNames) {
		return "UNKNOWN"
	}
	return statusCodeNames[c]
}

// Text protocol keywords
const (
	KeywordValue       = "VALUE"
	KeywordStat        = "STAT"
	KeywordStored      = "STORED"
	KeywordExists      = "EXISTS"
	KeywordDeleted     = "DELETED"
	KeywordTouched     = "TOUCHED"
	KeywordNotFound    = "NOT_FOUND"
	KeywordNotStored   = "NOT_STORED"
	KeywordOK          = "OK"
	KeywordEnd         = "END"
	KeywordVersion     = "VERSION"
	KeywordError       = "ERROR"
	KeywordClientError = "CLIENT_ERROR"
	KeywordServerError = "SERVER_ERROR"
)

// Meta protocol response codes (2-character codes)
const (
	MetaHD = "HD" // Hit/stored - success for most operations
	MetaVA = "VA" // Value follows
	MetaEN = "EN" // Miss
	MetaNF = "NF" // Not found
	MetaNS = "NS" // Not stored
	MetaEX = "EX" // Exists (CAS mismatch)
	MetaMN = "MN" // No-op
	MetaME = "ME" // Debug
)

// Protocol constants
const (
	CRLF = "\r\n"

	MaxKeyLength   = 250           // Maximum key length in bytes
	MaxValueLength = math.MaxInt32 // Largest value length the parser trusts

	// MaxFixedLineLength is the longest line the fixed text grammar can
	// produce: "VALUE <250-byte key> <uint32> <int64> <uint64>\r\n".
	MaxFixedLineLength = len(KeywordValue) + 1 + MaxKeyLength + 1 + 10 + 1 + 19 + 1 + 20 + len(CRLF)

	// MinBufferSize is the smallest buffer the parser accepts. It leaves
	// room for any fixed-grammar header plus the start of its value.
	MinBufferSize = 1024
)
