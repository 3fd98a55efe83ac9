package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is an error reported to the client with a specific HTTP status
type Error struct {
	Status  int
	Err     error
	Details map[string]any
}

// NewError wraps err so it is reported with status
func NewError(status int, err error) *Error {
	return &Error{Status: status, Err: err}
}

// Errorf formats a message reported with status
func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of e carrying an extra detail field
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Status: e.Status, Err: e.Err, Details: details}
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteJSON writes v as JSON with the given status. The body is encoded
// before any header is written, so an unencodable value becomes a 500.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "failed to encode response"})
		err = fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, werr := w.Write(append(body, '\n')); werr != nil && err == nil {
		err = werr
	}
	return err
}

// WriteError writes err as an ErrorResponse. An *Error keeps its status
// and details; anything else is reported as 500.
func WriteError(w http.ResponseWriter, err error) {
	var herr *Error
	if !errors.As(err, &herr) {
		herr = NewError(http.StatusInternalServerError, err)
	}
	_ = WriteJSON(w, herr.Status, ErrorResponse{
		Error:   herr.Error(),
		Details: herr.Details,
	})
}

// WriteNoContent writes an empty 204 response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
