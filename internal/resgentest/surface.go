// Package resgentest provides an in-memory API surface for tests.
// This package is designed to be import-cycle safe and can be used from any package
// within the resgen module.
package resgentest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/broady/resgen"
)

// Op creates an operation with no handle.
func Op(verb, path string) resgen.Operation {
	return resgen.Operation{Verb: verb, Path: path}
}

// Surface implements resgen.SnapshotProvider and resgen.RouteExtractor over
// services declared with a fluent API:
//
//	s := resgentest.NewSurface()
//	s.Service("Widgets").
//	    Version("2021-01-01", resgentest.Op("get", "/widgets/{name}")).
//	    Version("2022-01-01", resgentest.Op("get", "/widgets/{widgetName}"))
type Surface struct {
	mu       sync.Mutex
	services []*ServiceBuilder
	global   *ServiceBuilder
	visited  []string

	// RoutesErr, if set, is returned by Routes for every snapshot.
	RoutesErr error
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{}
}

// ServiceBuilder declares the versions of one service.
type ServiceBuilder struct {
	namespace string
	kind      resgen.VersioningKind
	none      bool
	versions  []version
}

type version struct {
	label string
	ops   []resgen.Operation
}

// Service declares a service with snapshot versioning.
func (s *Surface) Service(namespace string) *ServiceBuilder {
	b := &ServiceBuilder{namespace: namespace, kind: resgen.VersioningSnapshot}
	s.services = append(s.services, b)
	return b
}

// Global returns the builder of the implicit global service, used only when
// no service is declared.
func (s *Surface) Global() *ServiceBuilder {
	if s.global == nil {
		s.global = &ServiceBuilder{namespace: resgen.GlobalNamespace, kind: resgen.VersioningSnapshot}
	}
	return s.global
}

// Version adds a snapshot with the given label and operations.
func (b *ServiceBuilder) Version(label string, ops ...resgen.Operation) *ServiceBuilder {
	b.versions = append(b.versions, version{label: label, ops: ops})
	return b
}

// Unversioned adds the single implicit snapshot of an unversioned service.
func (b *ServiceBuilder) Unversioned(ops ...resgen.Operation) *ServiceBuilder {
	return b.Version("", ops...)
}

// Transient marks the service as transiently versioned.
func (b *ServiceBuilder) Transient() *ServiceBuilder {
	b.kind = resgen.VersioningTransient
	return b
}

// NoVersioning makes the service resolve to nil versioning.
func (b *ServiceBuilder) NoVersioning() *ServiceBuilder {
	b.none = true
	return b
}

// Services implements resgen.SnapshotProvider.
func (s *Surface) Services(ctx context.Context) ([]resgen.Service, error) {
	services := make([]resgen.Service, 0, len(s.services))
	for _, b := range s.services {
		services = append(services, resgen.Service{Namespace: b.namespace})
	}
	return services, nil
}

// Versions implements resgen.SnapshotProvider.
func (s *Surface) Versions(ctx context.Context, svc resgen.Service) (*resgen.Versioning, error) {
	b := s.find(svc)
	if b == nil {
		return nil, fmt.Errorf("unknown service %q", svc.Namespace)
	}
	if b.none {
		return nil, nil
	}

	v := &resgen.Versioning{Kind: b.kind}
	for i, ver := range b.versions {
		v.Snapshots = append(v.Snapshots, resgen.Snapshot{
			Service: svc,
			Version: ver.label,
			Handle:  i,
		})
	}
	return v, nil
}

// Routes implements resgen.RouteExtractor.
func (s *Surface) Routes(ctx context.Context, snap resgen.Snapshot) ([]resgen.Operation, error) {
	s.mu.Lock()
	s.visited = append(s.visited, snap.Service.Namespace+"@"+snap.Version)
	s.mu.Unlock()

	if s.RoutesErr != nil {
		return nil, s.RoutesErr
	}
	b := s.find(snap.Service)
	if b == nil {
		return nil, fmt.Errorf("unknown service %q", snap.Service.Namespace)
	}
	i, ok := snap.Handle.(int)
	if !ok || i < 0 || i >= len(b.versions) {
		return nil, fmt.Errorf("invalid snapshot handle %v", snap.Handle)
	}
	return slices.Clone(b.versions[i].ops), nil
}

// Visited returns the "namespace@version" of every snapshot whose routes were
// extracted, in order.
func (s *Surface) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.visited)
}

func (s *Surface) find(svc resgen.Service) *ServiceBuilder {
	for _, b := range s.services {
		if b.namespace == svc.Namespace {
			return b
		}
	}
	if svc.IsGlobal() && s.global != nil {
		return s.global
	}
	return nil
}

// Recorder is a resgen.SchemaBuilder whose path item is the list of
// "verb path" calls it received for a resource, in order.
type Recorder struct {
	mu    sync.Mutex
	calls []string

	// Err, if set, is returned for operations whose verb equals FailVerb, or
	// for every operation when FailVerb is empty.
	Err      error
	FailVerb string
}

// Accumulate implements resgen.SchemaBuilder.
func (r *Recorder) Accumulate(ctx context.Context, op resgen.Operation, existing any) (any, error) {
	if r.Err != nil && (r.FailVerb == "" || r.FailVerb == op.Verb) {
		return nil, r.Err
	}

	call := op.Verb + " " + op.Path
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	var prev []string
	if existing != nil {
		var ok bool
		prev, ok = existing.([]string)
		if !ok {
			return nil, fmt.Errorf("unexpected path item type %T", existing)
		}
	}
	return append(slices.Clone(prev), call), nil
}

// Calls returns every call received, across all resources.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}
