// Package resgen discovers the resources of a versioned HTTP API surface.
//
// A surface is described by three collaborators: a SnapshotProvider that
// lists services and their version snapshots, a RouteExtractor that flattens
// a snapshot into operations, and a SchemaBuilder that folds operations into
// a per-resource path item.
//
// Every operation's path template is canonicalized into a ResourceID that
// does not depend on parameter names:
//
//	resgen.Canonicalize("/widgets/{widgetName}") // "/widgets/{}"
//
// The Registry then produces one of two views:
//
//	reg := resgen.NewRegistry(provider, extractor)
//	resources, err := reg.ListResources(ctx)
//	// [{id: /widgets/{}, versions: [{2021-01-01, /widgets/{name}}, ...]}]
//
//	ops, err := reg.WithBuilder(builder).GetResourceOperations(ctx, "2022-01-01", []string{"/widgets/{}"})
//
// Package emitter writes these views as resources.json and
// resources_operations.json; package provider implements the collaborators
// over OpenAPI documents.
package resgen
