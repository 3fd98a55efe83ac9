package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes reported in ValidationError.Code
const (
	CodeRequired      = "any.required"
	CodeOnly          = "any.only"
	CodeBooleanBase   = "boolean.base"
	CodeNumberBase    = "number.base"
	CodeNumberInteger = "number.integer"
	CodeNumberMin     = "number.min"
	CodeStringBase    = "string.base"
	CodeStringEmpty   = "string.empty"
	CodeBinaryBase    = "binary.base"
	CodeObjectBase    = "object.base"
	CodeObjectUnknown = "object.unknown"
	CodeObjectOxor    = "object.oxor"
	CodeArrayBase     = "array.base"
)

// ValidationError describes a single rule violation
type ValidationError struct {
	Path    string `json:"path" yaml:"path"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", pathLabel(e.Path), e.Message)
}

// ValidationErrors aggregates every violation found in one value
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Codes returns the code of every violation in order
func (e *ValidationErrors) Codes() []string {
	codes := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		codes = append(codes, err.Code)
	}
	return codes
}

// Has reports whether a violation with the given path and code was recorded
func (e *ValidationErrors) Has(path, code string) bool {
	for _, err := range e.Errors {
		if err.Path == path && err.Code == code {
			return true
		}
	}
	return false
}

// AsValidationErrors extracts the violations from an error returned by Validate
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var verrs *ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

func (e *ValidationErrors) add(path, code string, value any, format string, args ...any) {
	e.Errors = append(e.Errors, &ValidationError{
		Path:    path,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Value:   value,
	})
}

func pathLabel(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
