package mcmc

// SLogger abstracts the [*slog.Logger] behavior.
//
// Two log levels are used:
//   - Info for lifecycle events (connect, nonblocking connect check, close)
//   - Debug for per-I/O events (write, writev, read)
//
// The [*slog.Logger] type satisfies this interface.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns a logger that discards everything: the library
// stays silent unless the caller configures a logger.
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

type discardSLogger struct{}

var _ SLogger = discardSLogger{}

// Debug implements [SLogger].
func (discardSLogger) Debug(msg string, args ...any) {
	// nothing
}

// Info implements [SLogger].
func (discardSLogger) Info(msg string, args ...any) {
	// nothing
}
