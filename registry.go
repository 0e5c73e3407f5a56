package resgen

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
)

// Registry discovers resources across every version of every service.
//
// A Registry holds only configuration. Each call to ListResources or
// GetResourceOperations builds its own accumulator from scratch, so one
// Registry may serve concurrent runs as long as its collaborators do.
type Registry struct {
	provider SnapshotProvider
	routes   RouteExtractor
	builder  SchemaBuilder
	logger   *slog.Logger
}

// NewRegistry creates a registry over the given collaborators.
func NewRegistry(provider SnapshotProvider, routes RouteExtractor) *Registry {
	return &Registry{
		provider: provider,
		routes:   routes,
	}
}

// WithBuilder sets the schema builder used by GetResourceOperations.
// It returns the registry for chaining.
func (r *Registry) WithBuilder(b SchemaBuilder) *Registry {
	r.builder = b
	return r
}

// WithLogger sets a custom logger for the registry.
// If not set, slog.Default() will be used.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// ResourceVersion is one (version, path) pair of a resource.
type ResourceVersion struct {
	Version string     `json:"version"`
	Path    string     `json:"path"`
	ID      ResourceID `json:"id"`
}

// ResourceVersions lists the versions in which a resource appears.
type ResourceVersions struct {
	ID       ResourceID        `json:"id"`
	Versions []ResourceVersion `json:"versions"`
}

// ResourceOperations is the merged operation record of a resource in one
// version.
type ResourceOperations struct {
	ID      ResourceID `json:"id"`
	Path    string     `json:"path"`
	Version string     `json:"version"`

	// PathItem is built by the SchemaBuilder and is opaque to the registry.
	PathItem any `json:"pathItem,omitempty"`
}

// ListResources enumerates every resource across every non-transient version
// of every service.
//
// Resource ids are listed in first-discovery order and each resource's
// versions in the order the versions were discovered. When one version maps
// an id to two different templates (which can only differ in casing), the
// last observed template wins.
func (r *Registry) ListResources(ctx context.Context) ([]ResourceVersions, error) {
	m := newVersionMap()

	err := r.walk(ctx, nil, func(snap Snapshot, op Operation) error {
		id, ok := r.canonicalize(ctx, snap, op)
		if !ok {
			return nil
		}
		if prev, replaced := m.put(id, snap.Version, op.Path); replaced && prev != op.Path {
			r.log().DebugContext(ctx, "resource path overwritten",
				slog.String("resource", id.String()),
				slog.String("version", snap.Version),
				slog.String("previous", prev),
				slog.String("path", op.Path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.list(), nil
}

// GetResourceOperations folds the operations of the target resources in the
// target version through the schema builder.
//
// Only snapshots whose version equals version are visited. Operations on
// resources outside targets are ignored. Records that received no operation
// are left out of the result; the rest keep the order of targets.
func (r *Registry) GetResourceOperations(ctx context.Context, version string, targets []string) ([]ResourceOperations, error) {
	if r.builder == nil {
		return nil, NewError(CodeConfiguration, "no schema builder configured")
	}

	ids, err := canonicalizeTargets(targets)
	if err != nil {
		return nil, err
	}

	records := make(map[ResourceID]*ResourceOperations, len(ids))
	for _, id := range ids {
		records[id] = &ResourceOperations{ID: id, Version: version}
	}

	inVersion := func(s Snapshot) bool { return s.Version == version }
	err = r.walk(ctx, inVersion, func(snap Snapshot, op Operation) error {
		id, ok := r.canonicalize(ctx, snap, op)
		if !ok {
			return nil
		}
		rec, ok := records[id]
		if !ok {
			return nil
		}

		rec.Path = op.Path
		item, err := r.builder.Accumulate(ctx, op, rec.PathItem)
		if err != nil {
			if isCanceled(err) {
				return err
			}
			var e *Error
			if errors.As(err, &e) && e.Code == CodeSchemaBuilder {
				return e
			}
			return Wrap(CodeSchemaBuilder, err, "failed to build "+op.Verb+" "+op.Path).
				WithDetail("resource", id.String()).
				WithDetail("version", snap.Version)
		}
		rec.PathItem = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]ResourceOperations, 0, len(ids))
	for _, id := range ids {
		rec := records[id]
		if rec.PathItem == nil {
			r.log().DebugContext(ctx, "resource matched no operations",
				slog.String("resource", id.String()),
				slog.String("version", version))
			continue
		}
		result = append(result, *rec)
	}
	return result, nil
}

// LatestVersion returns the last snapshot version of the first versioned
// service. Unversioned services, whose only snapshot has an empty label, are
// passed over. It returns "" when no service is versioned.
func (r *Registry) LatestVersion(ctx context.Context) (string, error) {
	services, err := r.services(ctx)
	if err != nil {
		return "", err
	}
	for _, svc := range services {
		v, err := r.versions(ctx, svc)
		if err != nil {
			return "", err
		}
		if v == nil {
			continue
		}
		labeled := lo.Filter(v.Snapshots, func(s Snapshot, _ int) bool { return s.Version != "" })
		if len(labeled) == 0 {
			continue
		}
		return labeled[len(labeled)-1].Version, nil
	}
	return "", nil
}

// walk visits every operation of every snapshot accepted by keep, strictly in
// order: services, then their snapshots, then each snapshot's operations.
func (r *Registry) walk(ctx context.Context, keep func(Snapshot) bool, visit func(Snapshot, Operation) error) error {
	services, err := r.services(ctx)
	if err != nil {
		return err
	}

	for _, svc := range services {
		v, err := r.versions(ctx, svc)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}

		snapshots := v.Snapshots
		if keep != nil {
			snapshots = lo.Filter(snapshots, func(s Snapshot, _ int) bool { return keep(s) })
		}

		for _, snap := range snapshots {
			if snap.Service == (Service{}) {
				snap.Service = svc
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			ops, err := r.routes.Routes(ctx, snap)
			if err != nil {
				return providerError(err, "failed to extract routes",
					"service", svc.String(),
					"version", snap.Version)
			}
			if len(ops) == 0 {
				r.log().WarnContext(ctx, "snapshot declares no routes",
					slog.String("code", string(CodeNoRoutes)),
					slog.String("service", svc.String()),
					slog.String("version", snap.Version))
				continue
			}

			for _, op := range ops {
				if err := visit(snap, op); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Registry) services(ctx context.Context) ([]Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	services, err := r.provider.Services(ctx)
	if err != nil {
		return nil, providerError(err, "failed to list services")
	}
	if len(services) == 0 {
		services = []Service{{Namespace: GlobalNamespace}}
	}
	return services, nil
}

// versions resolves svc's snapshots, returning nil for services that must be
// skipped (no versioning information, or transient versioning).
func (r *Registry) versions(ctx context.Context, svc Service) (*Versioning, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := r.provider.Versions(ctx, svc)
	if err != nil {
		return nil, providerError(err, "failed to resolve versions", "service", svc.String())
	}
	if v == nil || v.Kind == VersioningTransient {
		r.log().DebugContext(ctx, "skipping service without stable versions",
			slog.String("service", svc.String()))
		return nil, nil
	}
	return v, nil
}

// canonicalize resolves the resource id of op. Malformed templates are
// logged and reported as not ok.
func (r *Registry) canonicalize(ctx context.Context, snap Snapshot, op Operation) (ResourceID, bool) {
	id, err := Canonicalize(op.Path)
	if err != nil {
		r.log().WarnContext(ctx, "skipping operation with malformed path",
			slog.String("code", string(CodeMalformedPath)),
			slog.String("service", snap.Service.String()),
			slog.String("version", snap.Version),
			slog.String("verb", op.Verb),
			slog.String("path", op.Path),
			slog.Any("error", err))
		return "", false
	}
	return id, true
}

// canonicalizeTargets canonicalizes and de-duplicates the target ids, keeping
// first occurrence order.
func canonicalizeTargets(targets []string) ([]ResourceID, error) {
	ids := make([]ResourceID, 0, len(targets))
	for _, t := range targets {
		id, err := Canonicalize(t)
		if err != nil {
			return nil, Wrap(CodeConfiguration, err, "invalid target resource "+t)
		}
		ids = append(ids, id)
	}
	return lo.Uniq(ids), nil
}

// providerError classifies a collaborator failure. Cancellation is returned
// unchanged so callers still see context.Canceled or DeadlineExceeded.
func providerError(err error, message string, details ...string) error {
	if isCanceled(err) {
		return err
	}
	var e *Error
	if !errors.As(err, &e) {
		e = Wrap(CodeProvider, err, message)
	}
	for i := 0; i+1 < len(details); i += 2 {
		e = e.WithDetail(details[i], details[i+1])
	}
	return e
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// versionMap is an insertion-ordered map of resource id to its versions.
type versionMap struct {
	order   []ResourceID
	entries map[ResourceID]*ResourceVersions
	index   map[ResourceID]map[string]int
}

func newVersionMap() *versionMap {
	return &versionMap{
		entries: make(map[ResourceID]*ResourceVersions),
		index:   make(map[ResourceID]map[string]int),
	}
}

// put records path for (id, version). If the pair already exists its path is
// replaced in place and the previous path is returned.
func (m *versionMap) put(id ResourceID, version, path string) (prev string, replaced bool) {
	entry, ok := m.entries[id]
	if !ok {
		entry = &ResourceVersions{ID: id}
		m.entries[id] = entry
		m.index[id] = make(map[string]int)
		m.order = append(m.order, id)
	}

	if i, ok := m.index[id][version]; ok {
		prev = entry.Versions[i].Path
		entry.Versions[i].Path = path
		return prev, true
	}

	m.index[id][version] = len(entry.Versions)
	entry.Versions = append(entry.Versions, ResourceVersion{Version: version, Path: path, ID: id})
	return "", false
}

func (m *versionMap) list() []ResourceVersions {
	result := make([]ResourceVersions, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.entries[id])
	}
	return result
}
