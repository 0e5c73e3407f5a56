package provider

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"golang.org/x/tools/txtar"

	"github.com/broady/resgen"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
services:
  - namespace: A
    versions:
      - version: "2021-01-01"
        file: a/2021.yaml
  - namespace: B
    versioning: transient
`))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if len(m.Services) != 2 || m.Services[0].Versions[0].File != "a/2021.yaml" {
		t.Errorf("manifest = %+v", m)
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "missing namespace",
			input:   "services:\n  - file: a.yaml\n",
			wantMsg: "required",
		},
		{
			name:    "unknown versioning",
			input:   "services:\n  - namespace: A\n    versioning: rolling\n",
			wantMsg: "oneof",
		},
		{
			name:    "version without file",
			input:   "services:\n  - namespace: A\n    versions:\n      - version: v1\n",
			wantMsg: "required",
		},
		{
			name:    "duplicate namespace",
			input:   "services:\n  - namespace: A\n  - namespace: A\n",
			wantMsg: "duplicate service",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.input))
			if !errors.Is(err, resgen.ErrProvider) {
				t.Fatalf("error = %v, want ErrProvider", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseManifest_BadYAML(t *testing.T) {
	if _, err := ParseManifest([]byte("services: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestArchiveFS_InvalidNames(t *testing.T) {
	tests := []struct {
		name  string
		files []txtar.File
	}{
		{"absolute", []txtar.File{{Name: "/etc/passwd"}}},
		{"parent", []txtar.File{{Name: "../x.yaml"}}},
		{"unclean", []txtar.File{{Name: "./a.yaml"}}},
		{"duplicate", []txtar.File{{Name: "a.yaml"}, {Name: "a.yaml"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ArchiveFS(&txtar.Archive{Files: tt.files}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestArchiveFS(t *testing.T) {
	ar := txtar.Parse([]byte("-- resgen.yaml --\nfile: api/widgets.yaml\n-- api/widgets.yaml --\nopenapi: 3.0.3\n"))
	fsys, err := ArchiveFS(ar)
	if err != nil {
		t.Fatalf("ArchiveFS() error = %v", err)
	}
	if err := fstest.TestFS(fsys, "resgen.yaml", "api/widgets.yaml"); err != nil {
		t.Error(err)
	}
	data, err := fs.ReadFile(fsys, "api/widgets.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "openapi: 3.0.3\n" {
		t.Errorf("ReadFile() = %q", data)
	}
}

func TestParseArchive_MissingManifest(t *testing.T) {
	if _, err := ParseArchive([]byte("-- api.yaml --\nopenapi: 3.0.3\n")); err == nil {
		t.Error("expected error for archive without resgen.yaml")
	}
}
