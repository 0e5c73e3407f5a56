package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/broady/resgen"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func openFixture(t *testing.T) *Catalog {
	t.Helper()
	cat, err := LoadArchive(filepath.Join("testdata", "surface.txtar"))
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	return cat.WithLogger(quiet)
}

func TestCatalog_Services(t *testing.T) {
	cat := openFixture(t)

	got, err := cat.Services(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []resgen.Service{
		{Namespace: "Contoso.Widgets"},
		{Namespace: "Contoso.Legacy"},
		{Namespace: "Contoso.Empty"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Services() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_Versions(t *testing.T) {
	ctx := context.Background()
	cat := openFixture(t)

	v, err := cat.Versions(ctx, resgen.Service{Namespace: "Contoso.Widgets"})
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if v.Kind != resgen.VersioningSnapshot {
		t.Errorf("Kind = %v, want snapshot", v.Kind)
	}
	var labels []string
	for _, s := range v.Snapshots {
		labels = append(labels, s.Version)
	}
	// The second label comes from info.version.
	if diff := cmp.Diff([]string{"2021-01-01", "2022-01-01"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	v, err = cat.Versions(ctx, resgen.Service{Namespace: "Contoso.Legacy"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != resgen.VersioningTransient || len(v.Snapshots) != 0 {
		t.Errorf("Contoso.Legacy = %+v, want transient without snapshots", v)
	}

	v, err = cat.Versions(ctx, resgen.Service{Namespace: "Contoso.Empty"})
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("Contoso.Empty = %+v, want nil", v)
	}

	if _, err := cat.Versions(ctx, resgen.Service{Namespace: "Nope"}); !errors.Is(err, resgen.ErrProvider) {
		t.Errorf("unknown service error = %v, want ErrProvider", err)
	}
}

func TestCatalog_Routes(t *testing.T) {
	ctx := context.Background()
	cat := openFixture(t)

	v, err := cat.Versions(ctx, resgen.Service{Namespace: "Contoso.Widgets"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		snapshot resgen.Snapshot
		want     []string
	}{
		{
			snapshot: v.Snapshots[0],
			want:     []string{"get /widgets", "get /widgets/{name}"},
		},
		{
			snapshot: v.Snapshots[1],
			want:     []string{"get /Widgets", "get /widgets/{widgetName}", "put /widgets/{widgetName}"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.snapshot.Version, func(t *testing.T) {
			ops, err := cat.Routes(ctx, tt.snapshot)
			if err != nil {
				t.Fatalf("Routes() error = %v", err)
			}
			var got []string
			for _, op := range ops {
				got = append(got, op.Verb+" "+op.Path)
				route, ok := op.Handle.(*Route)
				if !ok {
					t.Fatalf("handle = %T, want *Route", op.Handle)
				}
				if route.Operation == nil || route.PathItem == nil || route.Path != op.Path {
					t.Errorf("incomplete route for %s %s", op.Verb, op.Path)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Routes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCatalog_ExternalRefsResolved(t *testing.T) {
	ctx := context.Background()
	cat := openFixture(t)

	doc, err := cat.Document(ctx, "widgets/2021-01-01.json")
	if err != nil {
		t.Fatal(err)
	}
	op := doc.Paths.Find("/widgets/{name}").Get
	schema := op.Responses.Status(200).Value.Content.Get("application/json").Schema
	if schema.Value == nil || schema.Value.Properties["name"] == nil {
		t.Errorf("external reference not resolved: %+v", schema)
	}
}

func TestCatalog_SwaggerConverted(t *testing.T) {
	ctx := context.Background()
	cat := openFixture(t)

	doc, err := cat.Document(ctx, "widgets/2022-01-01.yaml")
	if err != nil {
		t.Fatal(err)
	}
	put := doc.Paths.Find("/widgets/{widgetName}").Put
	if put.RequestBody == nil || put.RequestBody.Value == nil {
		t.Fatal("body parameter was not converted to a request body")
	}
	if put.Extensions["x-ms-long-running-operation"] != true {
		t.Errorf("extensions = %v, want x-ms-long-running-operation", put.Extensions)
	}
}

func TestCatalog_DocumentCached(t *testing.T) {
	ctx := context.Background()
	cat := openFixture(t)

	a, err := cat.Document(ctx, "widgets/2022-01-01.yaml")
	if err != nil {
		t.Fatal(err)
	}
	b, err := cat.Document(ctx, "widgets/2022-01-01.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("document was loaded twice")
	}
}

func TestCatalog_RoutesRejectsForeignHandle(t *testing.T) {
	cat := openFixture(t)
	_, err := cat.Routes(context.Background(), resgen.Snapshot{Version: "v1", Handle: 3})
	if !errors.Is(err, resgen.ErrProvider) {
		t.Errorf("error = %v, want ErrProvider", err)
	}
}

func TestCatalog_ListResources(t *testing.T) {
	cat := openFixture(t)

	got, err := resgen.NewRegistry(cat, cat).WithLogger(quiet).ListResources(context.Background())
	if err != nil {
		t.Fatalf("ListResources() error = %v", err)
	}
	want := []resgen.ResourceVersions{
		{
			ID: "/widgets",
			Versions: []resgen.ResourceVersion{
				{Version: "2021-01-01", Path: "/widgets", ID: "/widgets"},
				{Version: "2022-01-01", Path: "/Widgets", ID: "/widgets"},
			},
		},
		{
			ID: "/widgets/{}",
			Versions: []resgen.ResourceVersion{
				{Version: "2021-01-01", Path: "/widgets/{name}", ID: "/widgets/{}"},
				{Version: "2022-01-01", Path: "/widgets/{widgetName}", ID: "/widgets/{}"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListResources() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_MissingDocument(t *testing.T) {
	cat, err := ParseArchive([]byte(`-- resgen.yaml --
file: missing.yaml
`))
	if err != nil {
		t.Fatal(err)
	}
	cat.WithLogger(quiet)

	_, err = resgen.NewRegistry(cat, cat).WithLogger(quiet).ListResources(context.Background())
	if !errors.Is(err, resgen.ErrProvider) {
		t.Errorf("error = %v, want ErrProvider", err)
	}
}

func TestCatalog_GlobalService(t *testing.T) {
	cat, err := ParseArchive([]byte(`-- resgen.yaml --
file: api.yaml
-- api.yaml --
openapi: 3.0.3
info:
  title: API
  version: "1.0"
paths:
  /things/{id}:
    get:
      responses:
        "200":
          description: OK
`))
	if err != nil {
		t.Fatal(err)
	}

	got, err := resgen.NewRegistry(cat, cat).WithLogger(quiet).ListResources(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []resgen.ResourceVersions{{
		ID:       "/things/{}",
		Versions: []resgen.ResourceVersion{{Version: "", Path: "/things/{id}", ID: "/things/{}"}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListResources() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_Validation(t *testing.T) {
	cat, err := ParseArchive([]byte(`-- resgen.yaml --
versions:
  - version: v1
    file: api.json
-- api.json --
{"openapi": "3.0.3", "paths": {}}
`))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := cat.Document(ctx, "api.json"); err != nil {
		t.Fatalf("lenient load error = %v", err)
	}

	strict := NewCatalog(cat.fsys, cat.Manifest()).WithValidation().WithLogger(quiet)
	if _, err := strict.Document(ctx, "api.json"); !errors.Is(err, resgen.ErrProvider) {
		t.Errorf("strict load error = %v, want ErrProvider", err)
	}
}

func TestLoadDocument_NotOpenAPI(t *testing.T) {
	cat, err := ParseArchive([]byte(`-- resgen.yaml --
file: notes.yaml
-- notes.yaml --
title: shopping list
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cat.Document(context.Background(), "notes.yaml"); err == nil {
		t.Error("expected error for a non-OpenAPI document")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(ManifestName, "services:\n  - namespace: A\n    file: specs/a.yaml\n")
	write("custom.yaml", "file: specs/a.yaml\n")
	write("specs/a.yaml", "openapi: 3.0.3\ninfo: {title: A, version: \"1\"}\npaths:\n  /a:\n    get:\n      responses:\n        \"200\": {description: OK}\n")

	for _, name := range []string{dir, filepath.Join(dir, "custom.yaml")} {
		cat, err := Open(name)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", name, err)
		}
		got, err := resgen.NewRegistry(cat, cat).WithLogger(quiet).ListResources(context.Background())
		if err != nil {
			t.Fatalf("ListResources() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "/a" {
			t.Errorf("Open(%q) resources = %+v", name, got)
		}
	}

	if _, err := Open(filepath.Join(dir, "nope")); !errors.Is(err, resgen.ErrConfiguration) {
		t.Errorf("missing surface error = %v, want ErrConfiguration", err)
	}
}
