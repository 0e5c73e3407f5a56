package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/broady/resgen"
)

// Transport error codes. They complement the resgen codes and appear only in
// HTTP responses.
const (
	CodeInvalidArgument  resgen.ErrorCode = "invalid_argument"
	CodeNotFound         resgen.ErrorCode = "not_found"
	CodeMethodNotAllowed resgen.ErrorCode = "method_not_allowed"
	CodeCanceled         resgen.ErrorCode = "canceled"
	CodeDeadlineExceeded resgen.ErrorCode = "deadline_exceeded"
	CodeInternal         resgen.ErrorCode = "internal"
)

// HTTPStatus maps an error code to an HTTP status code.
func HTTPStatus(code resgen.ErrorCode) int {
	switch code {
	case CodeInvalidArgument, resgen.CodeConfiguration, resgen.CodeMalformedPath:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case resgen.CodeProvider:
		return http.StatusBadGateway
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// toError maps an error returned by a handler to the response envelope.
func toError(err error) *resgen.Error {
	var e *resgen.Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return resgen.NewError(CodeDeadlineExceeded, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return resgen.NewError(CodeCanceled, "context canceled")
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any, len(valErrs))
		for _, ve := range valErrs {
			details[ve.Field()] = ve.Tag()
		}
		return &resgen.Error{
			Code:    CodeInvalidArgument,
			Message: err.Error(),
			Details: details,
		}
	}

	return resgen.NewError(CodeInternal, err.Error())
}

func writeError(w http.ResponseWriter, e *resgen.Error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(e.Code))
	if err := encodeErrorResponse(w, e); err != nil {
		// Headers already sent, nothing we can do.
		logger.Error("failed to encode error response",
			slog.String("code", string(e.Code)),
			slog.String("message", e.Message),
			slog.Any("error", err))
	}
}
