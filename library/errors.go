package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrFetchFailed wraps any failure of a list refresh.
	ErrFetchFailed = errors.New("fetch books failed")

	ErrUnsupportedSortField = errors.New("unsupported sort field")
	ErrBorrowerLocked       = errors.New("borrower is fixed to the signed-in user")
	ErrUnknownCategory      = errors.New("unknown feedback category")
	ErrNotAuthenticated     = errors.New("not signed in")
)

// NetworkError is a transport-level failure: the request never got a response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Detail holds the server's message when
// the body carried one.
type ServerError struct {
	Method string
	Path   string
	Status int
	Detail string
	Body   []byte
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Unauthorized reports a 401.
func (e *ServerError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// parseDetail pulls a message out of {"detail": ...} or {"error": ...} bodies.
// Structured details (validation lists) are returned as compact JSON.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{env.Detail, env.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		return string(raw)
	}
	return ""
}

// UserMessage turns err into the inline message shown next to a form.
// Server-provided details win; everything else falls back to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var se *ServerError
	if errors.As(err, &se) && strings.TrimSpace(se.Detail) != "" {
		return se.Detail
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Unauthorized()
}
