package provider

import (
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/tools/txtar"
)

// LoadArchive opens a txtar archive holding a whole surface: resgen.yaml plus
// the documents it references.
//
//	-- resgen.yaml --
//	services:
//	  - namespace: Widgets
//	    versions:
//	      - file: widgets.yaml
//	-- widgets.yaml --
//	openapi: 3.0.3
//	...
func LoadArchive(name string) (*Catalog, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return ParseArchive(data)
}

// ParseArchive is like LoadArchive but reads the archive from data.
func ParseArchive(data []byte) (*Catalog, error) {
	fsys, err := ArchiveFS(txtar.Parse(data))
	if err != nil {
		return nil, err
	}
	m, err := LoadManifest(fsys, ManifestName)
	if err != nil {
		return nil, err
	}
	return NewCatalog(fsys, m), nil
}

// ArchiveFS exposes the files of an archive as a read-only file system.
// File names must be clean, valid fs paths and unique. The archive must not
// be modified while the file system is in use.
func ArchiveFS(ar *txtar.Archive) (fs.FS, error) {
	seen := make(map[string]bool, len(ar.Files))
	for _, f := range ar.Files {
		if seen[f.Name] {
			return nil, fmt.Errorf("archive: duplicate file %q", f.Name)
		}
		seen[f.Name] = true
	}

	fsys, err := txtar.FS(ar)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return fsys, nil
}
