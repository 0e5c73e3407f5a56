// Package server exposes resource discovery over HTTP.
//
// Every request is an independent emission run over the configured surface.
// Responses use a {"result": ...} envelope, errors an {"error": {...}}
// envelope whose HTTP status follows the error code.
//
//	GET /Resources/List
//	GET /Resources/Operations?api-version=2022-01-01&resources=/widgets/{}
//	GET /Resources/Canonicalize?path=/widgets/{name}
//
// Example:
//
//	app := server.New(catalog, catalog).WithLogger(logger).WithMiddleware(server.CORS(nil))
//	http.ListenAndServe(":8080", app.Handler())
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/broady/resgen"
)

// App routes resource API requests. Configure it before calling Handler.
type App struct {
	provider    resgen.SnapshotProvider
	extractor   resgen.RouteExtractor
	builder     resgen.SchemaBuilder
	logger      *slog.Logger
	middlewares []func(http.Handler) http.Handler
	maskErrors  bool

	routes map[string]endpoint
}

// New creates an App serving the surface described by provider and extractor.
func New(provider resgen.SnapshotProvider, extractor resgen.RouteExtractor) *App {
	a := &App{
		provider:  provider,
		extractor: extractor,
	}
	a.routes = map[string]endpoint{
		"Resources.List":         newQuery(a.listResources),
		"Resources.Operations":   newQuery(a.resourceOperations),
		"Resources.Canonicalize": newQuery(a.canonicalize),
	}
	return a
}

// WithBuilder sets the schema builder. The default is pathitem.NewBuilder().
func (a *App) WithBuilder(b resgen.SchemaBuilder) *App {
	a.builder = b
	return a
}

// WithLogger sets a custom logger.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMiddleware adds an HTTP middleware. Middlewares run in the order they
// are added, the first being outermost.
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithMaskInternalErrors replaces the message of internal errors with a
// generic one.
func (a *App) WithMaskInternalErrors() *App {
	a.maskErrors = true
	return a
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Handler returns the http.Handler including all configured middleware.
func (a *App) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

func (a *App) serveHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log().Error("PANIC recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			a.writeError(w, resgen.NewError(CodeInternal, fmt.Sprintf("internal server error (panic): %v", rec)))
		}
	}()

	// Path format: /{service}/{method}
	parts := strings.Split(strings.TrimPrefix(req.URL.Path, "/"), "/")
	if len(parts) != 2 {
		a.writeError(w, resgen.NewError(CodeNotFound, "route not found"))
		return
	}
	ep, ok := a.routes[parts[0]+"."+parts[1]]
	if !ok {
		a.writeError(w, resgen.NewError(CodeNotFound, "route not found"))
		return
	}
	if req.Method != http.MethodGet {
		a.writeError(w, resgen.Errorf(CodeMethodNotAllowed, "method %s not allowed, expected GET", req.Method))
		return
	}

	ep.serveHTTP(w, req, a)
}

func (a *App) writeError(w http.ResponseWriter, e *resgen.Error) {
	if a.maskErrors && e.Code == CodeInternal {
		e = resgen.NewError(CodeInternal, "internal server error")
	}
	writeError(w, e, a.log())
}
