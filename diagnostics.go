package mcmc

// Bounds of the diagnostic buffers. Longer codes and messages are truncated.
const (
	ErrorCodeMax = 32
	ErrorMsgMax  = 512
)

// Diagnostics holds the last failure recorded on a connection.
// It is a single slot: every new failure overwrites the previous one.
type Diagnostics struct {
	code    [ErrorCodeMax]byte
	codeLen int
	msg     [ErrorMsgMax]byte
	msgLen  int
	err     error
}

func (d *Diagnostics) record(code string, err error) {
	d.codeLen = copy(d.code[:], code)
	d.msgLen = copy(d.msg[:], err.Error())
	d.err = err
}

// Copy copies the truncated code and message into the caller's buffers and
// returns how many bytes were written to each. Empty or nil buffers are
// left untouched.
func (d *Diagnostics) Copy(code, msg []byte) (int, int) {
	return copy(code, d.code[:d.codeLen]), copy(msg, d.msg[:d.msgLen])
}

// Code returns the recorded error code, empty when nothing failed yet.
func (d *Diagnostics) Code() string {
	return string(d.code[:d.codeLen])
}

// Message returns the recorded (truncated) error message.
func (d *Diagnostics) Message() string {
	return string(d.msg[:d.msgLen])
}

// Err returns the last recorded error.
func (d *Diagnostics) Err() error {
	return d.err
}
