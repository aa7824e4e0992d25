package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any APIError with status 401
var ErrUnauthorized = errors.New("backend: unauthorized")

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int
	Message string
	Path    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s: %d %s", e.Path, e.Status, e.Message)
}

// Is reports 401 responses as ErrUnauthorized
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// NetworkError means no response was received
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is a transport failure
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// newAPIError reads the display message from the body's message field,
// then error, then falls back to the status text
func newAPIError(status int, path string, body []byte) *APIError {
	e := &APIError{Status: status, Path: path}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		e.Message = strings.TrimSpace(payload.Message)
		if e.Message == "" {
			e.Message = strings.TrimSpace(payload.Error)
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
