package resgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeConfiguration ErrorCode = "configuration"  // unknown operation or invalid options; fatal before traversal
	CodeMalformedPath ErrorCode = "malformed_path" // a path template has no literal segment; the operation is skipped
	CodeNoRoutes      ErrorCode = "no_routes"      // a snapshot declares no operations; reported as a warning
	CodeSchemaBuilder ErrorCode = "schema_builder" // the schema builder failed; fatal for the run
	CodeProvider      ErrorCode = "provider"       // a snapshot provider or route extractor failed; fatal for the run
)

// Sentinels for use with errors.Is. Matching is by code only.
var (
	ErrConfiguration = &Error{Code: CodeConfiguration}
	ErrMalformedPath = &Error{Code: CodeMalformedPath}
	ErrNoRoutes      = &Error{Code: CodeNoRoutes}
	ErrSchemaBuilder = &Error{Code: CodeSchemaBuilder}
	ErrProvider      = &Error{Code: CodeProvider}
)

// Error is the standard error envelope. It is also the JSON shape used by the
// HTTP API.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new error that wraps cause.
func Wrap(code ErrorCode, cause error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Err:     e.Err,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// configurationError folds validator errors into a single configuration error
// with one detail per failing field.
func configurationError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return Wrap(CodeConfiguration, err, "invalid options")
	}

	details := make(map[string]any, len(valErrs))
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msg := formatValidationError(ve)
		details[ve.Field()] = msg
		messages = append(messages, ve.Field()+": "+msg)
	}
	return &Error{
		Code:    CodeConfiguration,
		Message: strings.Join(messages, "; "),
		Details: details,
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "min":
		return fmt.Sprintf("must have at least %s items", ve.Param())
	case "startswith":
		return fmt.Sprintf("must start with %q", ve.Param())
	case "excludesall":
		return fmt.Sprintf("must not contain any of %q", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
