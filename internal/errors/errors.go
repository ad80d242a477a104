// Package errors defines the error taxonomy shared by the session, client and
// ledger layers, and the service errors rendered by the stub API.
//
// Every failure surfaced by the core is an *Error of one Kind. Callers test the
// kind with errors.Is against the Err* sentinels or with IsKind.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// KindTransport is a non-2xx response or an unreachable server.
	KindTransport Kind = "transport"
	// KindValidation is bad input detected before any network call.
	KindValidation Kind = "validation"
	// KindResolution means every food source failed for a barcode.
	KindResolution Kind = "resolution"
	// KindInternal covers encoding and other local faults.
	KindInternal Kind = "internal"
)

// Sentinels for errors.Is.
var (
	ErrTransport  = &Error{Kind: KindTransport}
	ErrValidation = &Error{Kind: KindValidation}
	ErrResolution = &Error{Kind: KindResolution}
	ErrInternal   = &Error{Kind: KindInternal}
)

// Error is a categorized failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed (e.g. "login", "food-info").
	Op string
	// Field is set for validation failures.
	Field string
	// Message is a short description, or the server's message for
	// transport failures.
	Message string
	// StatusCode and Status are set when a response was received.
	StatusCode int
	Status     string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		var b strings.Builder
		if e.Op != "" {
			b.WriteString(e.Op)
			b.WriteString(": ")
		}
		if e.StatusCode == 0 {
			b.WriteString("request failed")
			if e.Err != nil {
				b.WriteString(": ")
				b.WriteString(e.Err.Error())
			}
			return b.String()
		}
		fmt.Fprintf(&b, "API error: %d %s", e.StatusCode, e.Status)
		if e.Message != "" {
			b.WriteString(": ")
			b.WriteString(e.Message)
		}
		return b.String()
	case KindValidation:
		if e.Field == "" {
			return e.Message
		}
		return e.Field + ": " + e.Message
	case KindResolution:
		return e.Message
	}
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Field == "" && t.Message == "" && t.StatusCode == 0 && t.Err == nil
}

// =============================================================================
// Constructors
// =============================================================================

// Transport reports a non-2xx response.
func Transport(op string, statusCode int, status, message string) *Error {
	if status == "" {
		status = http.StatusText(statusCode)
	}
	return &Error{Kind: KindTransport, Op: op, StatusCode: statusCode, Status: status, Message: message}
}

// Network reports a request that produced no response.
func Network(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// Validation reports bad local input for field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Required reports a missing required field.
func Required(field string) *Error {
	return Validation(field, "is required")
}

// NotFound reports that no source could resolve what.
func NotFound(resource, id string) *Error {
	msg := resource + " not found"
	if id != "" {
		msg = fmt.Sprintf("%s %q not found", resource, id)
	}
	return &Error{Kind: KindResolution, Message: msg}
}

// Internal wraps a local fault.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// =============================================================================
// Inspection
// =============================================================================

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// UserMessage renders err as the single human-readable line shown to users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindValidation:
		if e.Field == "" {
			return "Invalid input: " + e.Message
		}
		return fmt.Sprintf("Invalid %s: %s", e.Field, e.Message)
	case KindResolution:
		return "Sorry, " + e.Message + "."
	case KindTransport:
		switch {
		case e.StatusCode == 0:
			return "Cannot reach the nutrition service. Check your connection and try again."
		case e.StatusCode == http.StatusUnauthorized:
			return "Your session is no longer valid. Please log in again."
		case e.Message != "":
			return fmt.Sprintf("Request failed (%d %s): %s", e.StatusCode, e.Status, e.Message)
		default:
			return fmt.Sprintf("Request failed (%d %s)", e.StatusCode, e.Status)
		}
	}
	return "Something went wrong: " + e.Error()
}
