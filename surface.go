package resgen

import (
	"context"
	"strings"
)

// GlobalNamespace is the namespace of the implicit service used when a
// provider declares no services.
const GlobalNamespace = ""

// Service is a named root namespace exposing zero or more API versions.
type Service struct {
	Namespace string
}

// IsGlobal reports whether s is the implicit global service.
func (s Service) IsGlobal() bool {
	return s.Namespace == GlobalNamespace
}

func (s Service) String() string {
	if s.IsGlobal() {
		return "<global>"
	}
	return s.Namespace
}

// VersioningKind describes how a service's versions resolve.
type VersioningKind int

const (
	// VersioningSnapshot means the service resolves to an enumerable list of
	// immutable snapshots.
	VersioningSnapshot VersioningKind = iota

	// VersioningTransient means the version identity is not stable enough to
	// key a map. Such services contribute no resources.
	VersioningTransient
)

func (k VersioningKind) String() string {
	switch k {
	case VersioningSnapshot:
		return "snapshot"
	case VersioningTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Versioning is the result of resolving a service's versions.
type Versioning struct {
	Kind      VersioningKind
	Snapshots []Snapshot
}

// Snapshot is an immutable view of a service as of one version.
type Snapshot struct {
	Service Service

	// Version is the version label. It is empty for the single implicit
	// snapshot of an unversioned service.
	Version string

	// Handle is owned by the provider that produced the snapshot.
	Handle any
}

// Operation is one HTTP verb bound to one path template within a snapshot.
type Operation struct {
	// Verb is the lowercase HTTP method, e.g. "get".
	Verb string

	// Path is the path template with {param} placeholders.
	Path string

	// Handle is owned by the route extractor and consumed only by the
	// schema builder.
	Handle any
}

// Verbs lists the accepted operation verbs in their canonical order.
var Verbs = []string{"get", "put", "post", "patch", "delete", "head", "options", "trace"}

// NormalizeVerb lowercases verb and reports whether it is one of Verbs.
func NormalizeVerb(verb string) (string, bool) {
	v := strings.ToLower(verb)
	for _, known := range Verbs {
		if v == known {
			return v, true
		}
	}
	return v, false
}

// SnapshotProvider lists services and resolves their version snapshots.
type SnapshotProvider interface {
	// Services returns the declared services in declaration order. An empty
	// result makes the registry fall back to the global service.
	Services(ctx context.Context) ([]Service, error)

	// Versions resolves the snapshots of svc. A nil result means no
	// versioning information could be resolved; the service is skipped.
	Versions(ctx context.Context, svc Service) (*Versioning, error)
}

// RouteExtractor flattens one snapshot into its HTTP operations.
type RouteExtractor interface {
	Routes(ctx context.Context, snapshot Snapshot) ([]Operation, error)
}

// SchemaBuilder folds operations into a per-resource path item.
//
// Accumulate is called once per matching operation with the value returned by
// the previous call (nil for the first). The path item is opaque to the
// registry and is serialized as-is.
type SchemaBuilder interface {
	Accumulate(ctx context.Context, op Operation, existing any) (any, error)
}

// SchemaBuilderFunc adapts a function to SchemaBuilder.
type SchemaBuilderFunc func(ctx context.Context, op Operation, existing any) (any, error)

func (f SchemaBuilderFunc) Accumulate(ctx context.Context, op Operation, existing any) (any, error) {
	return f(ctx, op, existing)
}
