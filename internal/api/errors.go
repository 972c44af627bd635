package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is the typed failure returned for any non-2xx response or
// transport-level failure. Transport errors (no response received) are
// normalized to status 500.
type Error struct {
	Status   int
	Message  string
	Response []byte // raw response body, nil for transport errors
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status carried by the error.
func (e *Error) StatusCode() int {
	return e.Status
}

// IsUnauthorized reports whether the error is an authorization failure.
func (e *Error) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// transportError wraps a network-level failure where no response was
// received.
func transportError(err error) *Error {
	msg := "an unexpected error occurred"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Status: http.StatusInternalServerError, Message: msg}
}

// errorFromResponse builds an Error from a non-2xx response body,
// preferring the server-provided envelope message.
func errorFromResponse(status int, body []byte) *Error {
	msg := ""
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		msg = env.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "an unexpected error occurred"
	}
	return &Error{Status: status, Message: msg, Response: body}
}
