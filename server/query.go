package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/broady/resgen"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// endpoint is a registered route.
type endpoint interface {
	serveHTTP(w http.ResponseWriter, r *http.Request, app *App)
}

// query is a GET endpoint whose request is decoded from the query string.
type query[Req any, Res any] struct {
	fn func(context.Context, *Req) (Res, error)
}

func newQuery[Req any, Res any](fn func(context.Context, *Req) (Res, error)) *query[Req, Res] {
	return &query[Req, Res]{fn: fn}
}

func (q *query[Req, Res]) serveHTTP(w http.ResponseWriter, r *http.Request, app *App) {
	req := new(Req)
	if err := schemaDecoder.Decode(req, r.URL.Query()); err != nil {
		app.writeError(w, resgen.Errorf(CodeInvalidArgument, "failed to decode query: %v", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		app.writeError(w, toError(err))
		return
	}

	res, err := q.fn(r.Context(), req)
	if err != nil {
		app.writeError(w, toError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := encodeResponse(w, res); err != nil {
		// Response may be partially written.
		app.log().Error("failed to encode response", slog.Any("error", err))
	}
}
