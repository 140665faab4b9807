package generate

import (
	"errors"
	"fmt"
)

// Code categorizes generation failures.
type Code string

const (
	// CodeTransport means the collaborator could not be reached or answered
	// with an error status.
	CodeTransport Code = "TRANSPORT"

	// CodeRateLimited means every attempt was answered with HTTP 429.
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeMalformed means no structured value could be recovered.
	CodeMalformed Code = "MALFORMED"

	// CodeEmpty means the collaborator kept answering with nothing.
	CodeEmpty Code = "EMPTY"
)

// ErrMissingAPIKey is returned by NewClient without a key.
var ErrMissingAPIKey = errors.New("openrouter api key not set (OPENROUTER_API_KEY)")

// Error is a generation failure after the retry budget is spent.
type Error struct {
	Code Code

	// Stage is the request tag, when one was set.
	Stage string

	// Status is the last HTTP status seen, 0 if none.
	Status int

	Attempts int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("generate %s", e.Code)
	if e.Stage != "" {
		msg += " (" + e.Stage + ")"
	}
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func hasCode(err error, code Code) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsTransportError reports whether err is a transport failure.
// Rate limiting counts as transport.
func IsTransportError(err error) bool {
	return hasCode(err, CodeTransport) || hasCode(err, CodeRateLimited)
}

// IsRateLimited reports whether err came from repeated HTTP 429 answers.
func IsRateLimited(err error) bool { return hasCode(err, CodeRateLimited) }

// IsEmpty reports whether err means the collaborator returned nothing.
func IsEmpty(err error) bool { return hasCode(err, CodeEmpty) }
