package mcmc

// State is the connection state.
type State int

const (
	StateNotConnected State = iota // initial, and after Disconnect
	StateConnecting                // nonblocking connect in progress
	StateConnected
	StateWantRead  // last read would have blocked
	StateWantWrite // last write would have blocked
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "NOT_CONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateWantRead:
		return "WANT_READ"
	case StateWantWrite:
		return "WANT_WRITE"
	default:
		return "UNKNOWN"
	}
}

// isOpen reports whether the socket can carry requests.
func (s State) isOpen() bool {
	return s == StateConnected || s == StateWantRead || s == StateWantWrite
}
