package protocol

import (
	"bytes"
	"iter"
)

// Meta protocol flags commonly found in responses
const (
	FlagCAS         byte = 'c' // CAS value
	FlagClientFlags byte = 'f' // Client flags
	FlagHit         byte = 'h' // Whether item has been hit before
	FlagKey         byte = 'k' // Key
	FlagLastAccess  byte = 'l' // Time since last access in seconds
	FlagOpaque      byte = 'O' // Opaque value
	FlagSize        byte = 's' // Item size
	FlagTTL         byte = 't' // TTL remaining in seconds
	FlagBase64Key   byte = 'b' // Key is base64 encoded
	FlagWin         byte = 'W' // Client has won recache flag
	FlagStale       byte = 'X' // Item is stale
	FlagAlreadyWon  byte = 'Z' // Item already has winning flag assigned

	FlagValue byte = 'v' // Request only: return the item value
)

// All iterates over the flag tokens of the meta line in wire order. The
// token slice excludes the flag letter and is nil for bare flags.
func (m MetaPayload) All() iter.Seq2[byte, []byte] {
	return func(yield func(byte, []byte) bool) {
		rest := m.Flags
		for {
			rest = bytes.TrimLeft(rest, " ")
			if len(rest) == 0 {
				return
			}

			var tok []byte
			tok, rest, _ = bytes.Cut(rest, spaceBytes)

			var token []byte
			if len(tok) > 1 {
				token = tok[1:]
			}
			if !yield(tok[0], token) {
				return
			}
		}
	}
}

// Flag returns the token for the first flag of the given type.
//
// ok is true if the flag is present.
// token is nil if the flag is present but has no token.
func (m MetaPayload) Flag(flag byte) (token []byte, ok bool) {
	for f, tok := range m.All() {
		if f == flag {
			return tok, true
		}
	}
	return nil, false
}

// HasFlag checks if the meta line carries a flag of the given type.
func (m MetaPayload) HasFlag(flag byte) bool {
	_, ok := m.Flag(flag)
	return ok
}
