package provider

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/broady/resgen"
)

// ManifestName is the manifest file looked up in directories and archives.
const ManifestName = "resgen.yaml"

var validate = validator.New()

// Manifest declares the services of a surface and the document describing
// each of their versions. File paths are slash-separated and relative to the
// manifest.
//
//	services:
//	  - namespace: Contoso.Widgets
//	    versions:
//	      - version: 2021-01-01
//	        file: widgets/2021-01-01.json
//	      - file: widgets/2022-01-01.yaml   # version from info.version
//	  - namespace: Contoso.Legacy
//	    versioning: transient
//	  - namespace: Contoso.Unversioned
//	    file: unversioned.yaml
//
// The top-level file and versions describe the implicit global service and
// are used only when no service is declared.
type Manifest struct {
	Services []ServiceEntry `yaml:"services" validate:"dive"`
	File     string         `yaml:"file"`
	Versions []VersionEntry `yaml:"versions" validate:"dive"`
}

// ServiceEntry declares one service.
type ServiceEntry struct {
	Namespace string `yaml:"namespace" validate:"required"`

	// Versioning is "snapshot" (default) or "transient".
	Versioning string `yaml:"versioning" validate:"omitempty,oneof=snapshot transient"`

	// File describes an unversioned service. Ignored when Versions is set.
	File string `yaml:"file"`

	Versions []VersionEntry `yaml:"versions" validate:"dive"`
}

// VersionEntry declares one version snapshot.
type VersionEntry struct {
	// Version is the version label. When empty the document's info.version
	// is used.
	Version string `yaml:"version"`

	File string `yaml:"file" validate:"required"`
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads and parses the manifest at name within fsys.
func LoadManifest(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Validate checks field constraints and that namespaces are unique.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) && len(valErrs) > 0 {
			ve := valErrs[0]
			return resgen.Errorf(resgen.CodeProvider, "invalid manifest: %s failed %s validation", ve.Namespace(), ve.Tag())
		}
		return resgen.Wrap(resgen.CodeProvider, err, "invalid manifest")
	}

	seen := make(map[string]bool, len(m.Services))
	for _, svc := range m.Services {
		if seen[svc.Namespace] {
			return resgen.Errorf(resgen.CodeProvider, "invalid manifest: duplicate service %q", svc.Namespace)
		}
		seen[svc.Namespace] = true
	}
	return nil
}

// service returns the entry describing svc. The global service is described
// by the manifest's top-level fields.
func (m *Manifest) service(svc resgen.Service) (ServiceEntry, bool) {
	if svc.IsGlobal() {
		return ServiceEntry{File: m.File, Versions: m.Versions}, true
	}
	for _, e := range m.Services {
		if e.Namespace == svc.Namespace {
			return e, true
		}
	}
	return ServiceEntry{}, false
}
