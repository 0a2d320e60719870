package browser

import (
	"errors"
	"strings"

	"tzweb/internal/application/port"
)

// Error codes carried in evaluation envelopes and CodedError.
const (
	CodeCDPUnavailable = "CDP_UNAVAILABLE"
	CodePageNotFound   = "PAGE_NOT_FOUND"
	CodeEvalFailure    = "EVAL_FAILURE"
	CodeEvalTimeout    = "EVAL_TIMEOUT"
	CodeNotFound       = "NOT_FOUND"
	CodeStale          = "STALE"
	CodeIntercepted    = "INTERCEPTED"
	CodeNotClickable   = "NOT_CLICKABLE"
	CodeValidation     = "VALIDATION"
)

// staleHints are protocol error messages meaning the document the element
// lived in was replaced.
var staleHints = []string{
	"execution context was destroyed",
	"cannot find context with specified id",
	"node with given id does not belong to the document",
	"inspected target navigated or closed",
}

type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func newError(code, msg string, cause error) *CodedError {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *CodedError) Unwrap() error { return e.Cause }

// Is maps codes onto the automation port conditions so that callers only need
// errors.Is(err, port.ErrElementNotFound) and friends.
func (e *CodedError) Is(target error) bool {
	switch target {
	case port.ErrElementNotFound:
		return e.Code == CodeNotFound
	case port.ErrStaleElement:
		return e.Code == CodeStale
	case port.ErrClickIntercepted:
		return e.Code == CodeIntercepted
	case port.ErrClickTimeout:
		return e.Code == CodeNotClickable
	}
	return false
}

// classify turns a protocol failure into a stale-element error when the
// message says the page context went away.
func classify(msg string, cause error) *CodedError {
	text := strings.ToLower(msg)
	if cause != nil {
		text += " " + strings.ToLower(cause.Error())
	}
	for _, h := range staleHints {
		if strings.Contains(text, h) {
			return newError(CodeStale, msg, cause)
		}
	}
	return newError(CodeEvalFailure, msg, cause)
}

func asCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}
