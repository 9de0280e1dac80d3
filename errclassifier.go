package mcmc

import "github.com/bassosimone/errclass"

// ErrClassifier maps errors to the short codes stored in Diagnostics
// (e.g. "ECONNREFUSED", "ETIMEDOUT").
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using [errclass.New].
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)

// Codes recorded for parser failures.
const (
	CodeParse = "EPARSE"
	CodeValue = "EVALUE"
)
