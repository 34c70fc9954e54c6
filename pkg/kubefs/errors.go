package kubefs

import (
	"fmt"

	"github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

const (
	// TransportFailure means the exec channel could not be opened, broke
	// mid-stream, ran out of time or saw the remote process exit non-zero
	// without writing to stderr
	TransportFailure = iota

	// RemoteCommandFailure means the remote process wrote to stderr. The
	// message is that output, verbatim.
	RemoteCommandFailure
)

// WrapError wraps an error for the sake of showing a stack trace at the top level
// the go-errors package, for some reason, does not return nil when you try to wrap
// a non-error, so we're just doing it here
func WrapError(err error) error {
	if err == nil {
		return err
	}

	return errors.Wrap(err, 0)
}

// ComplexError an error which carries a code so that calling code has an easier job to do
// adapted from https://medium.com/yakka/better-go-error-handling-with-xerrors-1987650e0c79
type ComplexError struct {
	Message string
	Code    int
	frame   xerrors.Frame
	cause   error
}

// FormatError is a function
func (ce ComplexError) FormatError(p xerrors.Printer) error {
	p.Printf("%d %s", ce.Code, ce.Message)
	ce.frame.Format(p)
	return ce.cause
}

// Format is a function
func (ce ComplexError) Format(f fmt.State, c rune) {
	xerrors.FormatError(ce, f, c)
}

func (ce ComplexError) Error() string {
	return ce.Message
}

func (ce ComplexError) Unwrap() error {
	return ce.cause
}

// TransportError reports a failure of the channel itself. The message is the
// cause's, so callers see it verbatim.
func TransportError(cause error) error {
	return ComplexError{
		Message: cause.Error(),
		Code:    TransportFailure,
		frame:   xerrors.Caller(1),
		cause:   cause,
	}
}

// RemoteCommandError reports stderr output of the remote process
func RemoteCommandError(stderr string) error {
	return ComplexError{
		Message: stderr,
		Code:    RemoteCommandFailure,
		frame:   xerrors.Caller(1),
	}
}

// HasErrorCode is a function
func HasErrorCode(err error, code int) bool {
	var originalErr ComplexError
	if xerrors.As(err, &originalErr) {
		return originalErr.Code == code
	}
	return false
}
