// Package provider reads an API surface from OpenAPI documents.
//
// A Catalog pairs a Manifest with the file system holding the documents it
// references. It implements both resgen.SnapshotProvider and
// resgen.RouteExtractor:
//
//	cat, err := provider.Open("specs/")        // directory with resgen.yaml
//	cat, err := provider.Open("surface.txtar") // single-file archive
//	resources, err := resgen.NewRegistry(cat, cat).ListResources(ctx)
//
// Documents are loaded lazily and cached for the lifetime of the catalog.
package provider

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/samber/lo"

	"github.com/broady/resgen"
)

// Route is the operation handle produced by a Catalog. It is consumed by the
// pathitem schema builder.
type Route struct {
	Document  *openapi3.T
	Path      string
	Method    string // uppercase
	PathItem  *openapi3.PathItem
	Operation *openapi3.Operation
}

// Catalog serves the services of a manifest. It is safe for concurrent use.
type Catalog struct {
	fsys     fs.FS
	manifest *Manifest
	strict   bool
	logger   *slog.Logger

	mu   sync.Mutex
	docs map[string]*openapi3.T
}

// NewCatalog creates a catalog whose document paths resolve within fsys.
func NewCatalog(fsys fs.FS, m *Manifest) *Catalog {
	return &Catalog{
		fsys:     fsys,
		manifest: m,
		docs:     make(map[string]*openapi3.T),
	}
}

// Open creates a catalog from a path naming either a directory containing
// resgen.yaml, a manifest file, or a .txtar archive.
func Open(name string) (*Catalog, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, resgen.Wrap(resgen.CodeConfiguration, err, "surface not found")
	}

	var fsys fs.FS
	manifest := ManifestName
	switch {
	case info.IsDir():
		fsys = os.DirFS(name)
	case strings.EqualFold(filepath.Ext(name), ".txtar"):
		return LoadArchive(name)
	default:
		fsys = os.DirFS(filepath.Dir(name))
		manifest = filepath.Base(name)
	}

	m, err := LoadManifest(fsys, manifest)
	if err != nil {
		return nil, err
	}
	return NewCatalog(fsys, m), nil
}

// WithValidation makes the catalog reject documents that fail OpenAPI
// validation.
func (c *Catalog) WithValidation() *Catalog {
	c.strict = true
	return c
}

// WithLogger sets a custom logger.
// If not set, slog.Default() will be used.
func (c *Catalog) WithLogger(logger *slog.Logger) *Catalog {
	c.logger = logger
	return c
}

func (c *Catalog) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Manifest returns the catalog's manifest.
func (c *Catalog) Manifest() *Manifest {
	return c.manifest
}

// Services returns the declared services in manifest order.
func (c *Catalog) Services(ctx context.Context) ([]resgen.Service, error) {
	return lo.Map(c.manifest.Services, func(e ServiceEntry, _ int) resgen.Service {
		return resgen.Service{Namespace: e.Namespace}
	}), nil
}

// Versions resolves the snapshots of svc. A service without any document
// resolves to nil. Each snapshot's handle is the document path.
func (c *Catalog) Versions(ctx context.Context, svc resgen.Service) (*resgen.Versioning, error) {
	entry, ok := c.manifest.service(svc)
	if !ok {
		return nil, resgen.Errorf(resgen.CodeProvider, "unknown service %s", svc)
	}

	if entry.Versioning == "transient" {
		return &resgen.Versioning{Kind: resgen.VersioningTransient}, nil
	}

	if len(entry.Versions) == 0 {
		if entry.File == "" {
			return nil, nil
		}
		return &resgen.Versioning{
			Kind:      resgen.VersioningSnapshot,
			Snapshots: []resgen.Snapshot{{Service: svc, Handle: entry.File}},
		}, nil
	}

	v := &resgen.Versioning{Kind: resgen.VersioningSnapshot}
	for _, ve := range entry.Versions {
		label := ve.Version
		if label == "" {
			doc, err := c.Document(ctx, ve.File)
			if err != nil {
				return nil, err
			}
			if doc.Info != nil {
				label = doc.Info.Version
			}
			if label == "" {
				return nil, resgen.Errorf(resgen.CodeProvider, "%s: no version label and no info.version", ve.File).
					WithDetail("service", svc.String())
			}
		}
		v.Snapshots = append(v.Snapshots, resgen.Snapshot{Service: svc, Version: label, Handle: ve.File})
	}
	return v, nil
}

// Routes flattens the snapshot's document into operations, ordered by path
// and then by resgen.Verbs.
func (c *Catalog) Routes(ctx context.Context, snap resgen.Snapshot) ([]resgen.Operation, error) {
	file, ok := snap.Handle.(string)
	if !ok {
		return nil, resgen.Errorf(resgen.CodeProvider, "snapshot handle %T was not produced by this catalog", snap.Handle)
	}
	doc, err := c.Document(ctx, file)
	if err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, nil
	}

	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var ops []resgen.Operation
	for _, p := range paths {
		item := items[p]
		if item == nil {
			continue
		}
		for _, verb := range resgen.Verbs {
			method := strings.ToUpper(verb)
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			ops = append(ops, resgen.Operation{
				Verb: verb,
				Path: p,
				Handle: &Route{
					Document:  doc,
					Path:      p,
					Method:    method,
					PathItem:  item,
					Operation: op,
				},
			})
		}
	}
	return ops, nil
}

// Document returns the parsed document at name, loading it on first use.
func (c *Catalog) Document(ctx context.Context, name string) (*openapi3.T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if doc, ok := c.docs[name]; ok {
		return doc, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := loadDocument(ctx, c.fsys, name, c.strict)
	if err != nil {
		return nil, resgen.Wrap(resgen.CodeProvider, err, fmt.Sprintf("failed to load %s", name)).
			WithDetail("file", name)
	}
	c.docs[name] = doc
	c.log().DebugContext(ctx, "loaded document",
		slog.String("file", name),
		slog.Int("paths", len(doc.Paths.Map())))
	return doc, nil
}
