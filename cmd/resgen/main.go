package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/broady/resgen"
	"github.com/broady/resgen/emitter"
	"github.com/broady/resgen/provider"
	"github.com/broady/resgen/server"
)

type CLI struct {
	LogLevel string `help:"Log level." default:"info" enum:"debug,info,warn,error" name:"log-level"`

	Version      VersionCmd      `cmd:"" help:"Print version information."`
	Emit         EmitCmd         `cmd:"" help:"Write resources.json or resources_operations.json."`
	Serve        ServeCmd        `cmd:"" help:"Serve the resource API over HTTP."`
	Canonicalize CanonicalizeCmd `cmd:"" help:"Print the resource id of path templates."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

// SurfaceFlags locate the API surface.
type SurfaceFlags struct {
	Surface  string `arg:"" help:"Directory containing resgen.yaml, a manifest file, or a .txtar archive." type:"path"`
	Validate bool   `help:"Reject documents that fail OpenAPI validation."`
}

func (f *SurfaceFlags) open(logger *slog.Logger) (*provider.Catalog, error) {
	cat, err := provider.Open(f.Surface)
	if err != nil {
		return nil, err
	}
	if f.Validate {
		cat.WithValidation()
	}
	return cat.WithLogger(logger), nil
}

type EmitCmd struct {
	SurfaceFlags

	Config     string   `help:"YAML file with an options block." short:"c" type:"existingfile"`
	Option     []string `help:"Option as key=value, overriding the config file. Repeatable." short:"o"`
	Operation  string   `help:"Emission mode: list-resources or get-resources-operations."`
	Resource   []string `help:"Target resource id for get-resources-operations. Repeatable." short:"r"`
	APIVersion string   `help:"Target version; empty or \"latest\" selects the newest." name:"api-version"`
	OutputDir  string   `help:"Directory the artifact is written to." name:"output-dir" type:"path"`
}

// options merges the config file, --option pairs and flags, in increasing
// precedence.
func (c *EmitCmd) options() (resgen.Options, error) {
	var opts resgen.Options
	if c.Config != "" {
		var err error
		if opts, err = resgen.LoadOptions(c.Config); err != nil {
			return opts, err
		}
	}

	pairs, err := resgen.ParseOptionPairs(c.Option)
	if err != nil {
		return opts, err
	}
	if opts, err = resgen.DecodeOptions(opts, pairs); err != nil {
		return opts, err
	}

	if c.Operation != "" {
		opts.Operation = c.Operation
	}
	if len(c.Resource) > 0 {
		opts.Resources = c.Resource
	}
	if c.APIVersion != "" {
		opts.APIVersion = c.APIVersion
	}
	if c.OutputDir != "" {
		opts.OutputDir = c.OutputDir
	}
	return opts, nil
}

func (c *EmitCmd) Run(ctx context.Context, logger *slog.Logger) error {
	opts, err := c.options()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	cat, err := c.open(logger)
	if err != nil {
		return err
	}

	art, err := emitter.New(cat, cat).WithLogger(logger).ToDir(ctx, opts)
	if err != nil {
		return err
	}
	logger.Info("wrote artifact",
		slog.String("file", art.Name),
		slog.String("dir", opts.WithDefaults().OutputDir),
		slog.Int("entries", art.Count))
	return nil
}

type ServeCmd struct {
	SurfaceFlags

	Addr        string        `help:"Address to listen on." default:"localhost:8080" short:"a"`
	CORSOrigin  []string      `help:"Allowed CORS origin. Repeatable; \"*\" allows all." name:"cors-origin"`
	MaskErrors  bool          `help:"Hide internal error messages from clients." name:"mask-errors"`
	ReadTimeout time.Duration `help:"HTTP read timeout." default:"10s" name:"read-timeout"`
}

func (c *ServeCmd) Run(ctx context.Context, logger *slog.Logger) error {
	cat, err := c.open(logger)
	if err != nil {
		return err
	}

	app := server.New(cat, cat).
		WithLogger(logger).
		WithMiddleware(server.Logging(logger))
	if len(c.CORSOrigin) > 0 {
		app.WithMiddleware(server.CORS(&server.CORSConfig{AllowOrigins: c.CORSOrigin}))
	}
	if c.MaskErrors {
		app.WithMaskInternalErrors()
	}

	srv := &http.Server{
		Addr:        c.Addr,
		Handler:     app.Handler(),
		ReadTimeout: c.ReadTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", c.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type CanonicalizeCmd struct {
	Paths []string `arg:"" help:"Path templates."`
}

func (c *CanonicalizeCmd) Run() error {
	var failed bool
	for _, p := range c.Paths {
		id, err := resgen.Canonicalize(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p, err)
			failed = true
			continue
		}
		fmt.Printf("%s\t%s\n", p, id)
	}
	if failed {
		return errors.New("some paths are malformed")
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("resgen"),
		kong.Description("Discover the resources of a versioned API surface."),
		kong.UsageOnError(),
	)

	logger := newLogger(cli.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run(logger)
	kctx.FatalIfErrorf(err)
}
