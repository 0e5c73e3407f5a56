package server

import (
	"context"
	"encoding/json"

	"github.com/broady/resgen"
	"github.com/broady/resgen/emitter"
)

// ListRequest is the request of GET /Resources/List.
type ListRequest struct{}

// OperationsRequest is the request of GET /Resources/Operations.
type OperationsRequest struct {
	// APIVersion is the target version. Empty or "latest" selects the newest.
	APIVersion string `schema:"api-version" validate:"excludesall=/?#"`

	// Resources are the target resource ids, one query value each.
	Resources []string `schema:"resources" validate:"dive,required"`
}

// CanonicalizeRequest is the request of GET /Resources/Canonicalize.
type CanonicalizeRequest struct {
	Path string `schema:"path" validate:"required"`
}

// CanonicalizeResponse is the result of GET /Resources/Canonicalize.
type CanonicalizeResponse struct {
	ID       resgen.ResourceID `json:"id"`
	Template string            `json:"template"`
}

func (a *App) listResources(ctx context.Context, _ *ListRequest) (json.RawMessage, error) {
	return a.render(ctx, resgen.Options{Operation: resgen.OperationListResources})
}

func (a *App) resourceOperations(ctx context.Context, req *OperationsRequest) (json.RawMessage, error) {
	return a.render(ctx, resgen.Options{
		Operation:  resgen.OperationGetResourcesOperations,
		APIVersion: req.APIVersion,
		Resources:  req.Resources,
	})
}

func (a *App) canonicalize(_ context.Context, req *CanonicalizeRequest) (*CanonicalizeResponse, error) {
	id, err := resgen.Canonicalize(req.Path)
	if err != nil {
		return nil, err
	}
	tmpl, err := resgen.CanonicalTemplate(req.Path)
	if err != nil {
		return nil, err
	}
	return &CanonicalizeResponse{ID: id, Template: tmpl}, nil
}

// render runs one emission and returns the artifact content.
func (a *App) render(ctx context.Context, opts resgen.Options) (json.RawMessage, error) {
	e := emitter.New(a.provider, a.extractor).WithLogger(a.log())
	if a.builder != nil {
		e.WithBuilder(a.builder)
	}
	art, err := e.Render(ctx, opts)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(art.Content), nil
}
