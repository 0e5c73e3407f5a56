package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"sigs.k8s.io/yaml"
)

// loadDocument reads name from fsys and returns it as an OpenAPI 3 document.
// Swagger 2.0 documents are converted. YAML and JSON are both accepted.
func loadDocument(ctx context.Context, fsys fs.FS, name string, strict bool) (*openapi3.T, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	data, err = yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var header struct {
		Swagger string `json:"swagger"`
		OpenAPI string `json:"openapi"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	loader := newLoader(ctx, fsys)
	var doc *openapi3.T
	switch {
	case strings.HasPrefix(header.Swagger, "2."):
		var doc2 openapi2.T
		if err := json.Unmarshal(data, &doc2); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		doc, err = openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", name, err)
		}
		if err := loader.ResolveRefsIn(doc, &url.URL{Path: name}); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", name, err)
		}

	case strings.HasPrefix(header.OpenAPI, "3."):
		doc, err = loader.LoadFromDataWithPath(data, &url.URL{Path: name})
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}

	default:
		return nil, fmt.Errorf("%s is not an OpenAPI 2.0 or 3.x document", name)
	}

	if strict {
		if err := doc.Validate(loader.Context); err != nil {
			return nil, fmt.Errorf("validate %s: %w", name, err)
		}
	}
	return doc, nil
}

// newLoader returns a loader that resolves external references within fsys.
func newLoader(ctx context.Context, fsys fs.FS) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true
	loader.ReadFromURIFunc = func(_ *openapi3.Loader, u *url.URL) ([]byte, error) {
		if u.Scheme != "" || u.Host != "" {
			return nil, fmt.Errorf("remote reference %s not supported", u)
		}
		name := path.Clean(strings.TrimPrefix(u.Path, "/"))
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		return yaml.YAMLToJSON(data)
	}
	return loader
}
