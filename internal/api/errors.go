package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned for 401 responses, whether or not the call
	// forced a logout.
	ErrUnauthorized = errors.New("api: unauthorized")

	// ErrTimeout is returned when the per-call deadline expires. It is kept
	// apart from transport failures so callers can suggest a cheaper retry.
	ErrTimeout = errors.New("api: request timed out")

	// ErrInvalidResponse is returned when the body is not JSON.
	ErrInvalidResponse = errors.New("api: response is not JSON")
)

// TransportError wraps network-level failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AppError is an application-level failure: a {success:false, error} envelope,
// a FastAPI {detail} body, or a 401. Message is meant to be shown verbatim.
type AppError struct {
	StatusCode int
	Message    string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request failed (HTTP %d)", e.StatusCode)
	}
	return e.Message
}

// Is reports 401 AppErrors as ErrUnauthorized.
func (e *AppError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Envelope is a decoded JSON object response. Backend routes answer with
// {success, ...} or {success:false, error}; auth routes use {detail}.
type Envelope map[string]any

// Success reports the envelope's success flag. A missing flag is false.
func (e Envelope) Success() bool {
	b, _ := e["success"].(bool)
	return b
}

// Message extracts the human-readable failure text from error or detail.
// FastAPI validation errors carry a list in detail; those are flattened.
func (e Envelope) Message() string {
	if s, ok := e["error"].(string); ok && s != "" {
		return s
	}
	switch d := e["detail"].(type) {
	case string:
		return d
	case []any:
		parts := make([]string, 0, len(d))
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if msg, ok := m["msg"].(string); ok {
					parts = append(parts, msg)
					continue
				}
			}
			b, _ := json.Marshal(item)
			parts = append(parts, string(b))
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func appErrorFrom(status int, body []byte) *AppError {
	var env Envelope
	_ = json.Unmarshal(body, &env)
	return &AppError{StatusCode: status, Message: env.Message()}
}
