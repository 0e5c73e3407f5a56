// Package emitter selects an emission mode, runs the resource registry and
// writes the resulting JSON artifact.
//
// Example:
//
//	art, err := emitter.New(catalog, catalog).
//	    WithLogger(logger).
//	    ToDir(ctx, resgen.Options{Operation: resgen.OperationListResources, OutputDir: "out"})
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/broady/resgen"
	"github.com/broady/resgen/emitter/sink"
	"github.com/broady/resgen/pathitem"
)

// Emitter runs one emission per call. It holds no state between runs.
type Emitter struct {
	provider  resgen.SnapshotProvider
	extractor resgen.RouteExtractor
	builder   resgen.SchemaBuilder
	logger    *slog.Logger
}

// New creates an emitter over the given collaborators. The schema builder
// defaults to pathitem.NewBuilder().
func New(provider resgen.SnapshotProvider, extractor resgen.RouteExtractor) *Emitter {
	return &Emitter{
		provider:  provider,
		extractor: extractor,
	}
}

// WithBuilder sets the schema builder used by get-resources-operations.
func (e *Emitter) WithBuilder(b resgen.SchemaBuilder) *Emitter {
	e.builder = b
	return e
}

// WithLogger sets a custom logger.
// If not set, slog.Default() will be used.
func (e *Emitter) WithLogger(logger *slog.Logger) *Emitter {
	e.logger = logger
	return e
}

// Artifact is a rendered output file.
type Artifact struct {
	// Name is the file name, e.g. "resources.json".
	Name string

	// Version is the resolved target version (get-resources-operations only).
	Version string

	// Count is the number of top-level entries in the artifact.
	Count int

	// Content is the serialized JSON.
	Content []byte
}

// Render runs the registry for opts and serializes the result without
// writing it anywhere.
//
// Options are validated before any traversal; an unknown operation fails with
// an error matching resgen.ErrConfiguration.
func (e *Emitter) Render(ctx context.Context, opts resgen.Options) (*Artifact, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	reg := e.registry()
	start := time.Now()

	var (
		art    = &Artifact{Name: opts.ArtifactName()}
		result any
	)
	switch opts.Operation {
	case resgen.OperationListResources:
		resources, err := reg.ListResources(ctx)
		if err != nil {
			return nil, err
		}
		art.Count = len(resources)
		result = resources

	case resgen.OperationGetResourcesOperations:
		version := opts.APIVersion
		if version == "" {
			v, err := reg.LatestVersion(ctx)
			if err != nil {
				return nil, err
			}
			version = v
			e.log().InfoContext(ctx, "resolved target version",
				slog.String("version", version))
		}
		ops, err := reg.GetResourceOperations(ctx, version, opts.Resources)
		if err != nil {
			return nil, err
		}
		art.Version = version
		art.Count = len(ops)
		result = ops

	default:
		// Unreachable after Validate, kept so a new operation cannot be
		// silently ignored.
		return nil, resgen.Errorf(resgen.CodeConfiguration, "unknown operation: %s", opts.Operation)
	}

	content, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", art.Name, err)
	}
	art.Content = append(content, '\n')

	e.log().InfoContext(ctx, "rendered artifact",
		slog.String("operation", opts.Operation),
		slog.String("artifact", art.Name),
		slog.Int("entries", art.Count),
		slog.Duration("duration", time.Since(start)))
	return art, nil
}

// Emit renders opts and writes the artifact to out. Nothing is written when
// rendering fails.
func (e *Emitter) Emit(ctx context.Context, opts resgen.Options, out sink.OutputSink) (*Artifact, error) {
	art, err := e.Render(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := out.WriteFile(ctx, art.Name, art.Content); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", art.Name, err)
	}
	return art, nil
}

// ToDir renders opts and writes the artifact into opts.OutputDir.
func (e *Emitter) ToDir(ctx context.Context, opts resgen.Options) (*Artifact, error) {
	dir := opts.WithDefaults().OutputDir
	return e.Emit(ctx, opts, sink.NewFilesystemSink(dir))
}

func (e *Emitter) registry() *resgen.Registry {
	builder := e.builder
	if builder == nil {
		builder = pathitem.NewBuilder()
	}
	return resgen.NewRegistry(e.provider, e.extractor).
		WithBuilder(builder).
		WithLogger(e.log())
}

func (e *Emitter) log() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}
