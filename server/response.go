package server

import (
	"encoding/json"
	"io"

	"github.com/broady/resgen"
)

// response is the envelope of successful responses: {"result": ...}.
type response struct {
	Result any `json:"result"`
}

// errorResponse is the envelope of error responses: {"error": {...}}.
type errorResponse struct {
	Error *resgen.Error `json:"error"`
}

func encodeResponse(w io.Writer, result any) error {
	return json.NewEncoder(w).Encode(response{Result: result})
}

func encodeErrorResponse(w io.Writer, err *resgen.Error) error {
	return json.NewEncoder(w).Encode(errorResponse{Error: err})
}
