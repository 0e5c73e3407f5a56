// Package pathitem builds per-resource path items from OpenAPI operations.
//
// The Builder is the default resgen.SchemaBuilder. It consumes the
// *provider.Route handles produced by a provider.Catalog and folds every
// operation of a resource into one PathItem keyed by verb.
package pathitem

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/broady/resgen"
	"github.com/broady/resgen/provider"
)

// Extensions read from operations.
const (
	ExtLongRunning = "x-ms-long-running-operation"
	ExtPageable    = "x-ms-pageable"
)

// PathItem is the merged operation set of one resource in one version.
type PathItem struct {
	Operations map[string]*OperationSchema `json:"operations"`
}

// OperationSchema summarizes one operation.
type OperationSchema struct {
	OperationID string     `json:"operationId,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Deprecated  bool       `json:"deprecated,omitempty"`
	LongRunning bool       `json:"longRunning,omitempty"`
	Pageable    bool       `json:"pageable,omitempty"`
	Arguments   []Argument `json:"arguments,omitempty"`
	Outputs     []Output   `json:"outputs,omitempty"`
}

// Argument is a parameter or the request body.
type Argument struct {
	Name        string     `json:"name"`
	In          string     `json:"in"` // path, query, header, cookie or body
	Required    bool       `json:"required,omitempty"`
	Type        string     `json:"type,omitempty"`
	Description string     `json:"description,omitempty"`
	Properties  []Property `json:"properties,omitempty"` // body only
}

// Property is a top-level property of a request body.
type Property struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Output is one declared response.
type Output struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Builder implements resgen.SchemaBuilder. It is stateless.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

var _ resgen.SchemaBuilder = (*Builder)(nil)

// Accumulate adds op to existing and returns the result. existing is never
// modified. An operation for a verb already present replaces it.
func (b *Builder) Accumulate(ctx context.Context, op resgen.Operation, existing any) (any, error) {
	route, ok := op.Handle.(*provider.Route)
	if !ok || route == nil || route.Operation == nil {
		return nil, fmt.Errorf("operation %s %s: unsupported handle %T", op.Verb, op.Path, op.Handle)
	}

	var prev *PathItem
	switch v := existing.(type) {
	case nil:
	case *PathItem:
		prev = v
	default:
		return nil, fmt.Errorf("operation %s %s: unexpected path item %T", op.Verb, op.Path, existing)
	}

	next := &PathItem{Operations: make(map[string]*OperationSchema)}
	if prev != nil {
		maps.Copy(next.Operations, prev.Operations)
	}
	next.Operations[strings.ToLower(op.Verb)] = describe(route)
	return next, nil
}

func describe(r *provider.Route) *OperationSchema {
	op := r.Operation
	s := &OperationSchema{
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Deprecated:  op.Deprecated,
		LongRunning: extensionSet(op.Extensions, ExtLongRunning),
		Pageable:    extensionSet(op.Extensions, ExtPageable),
	}

	var inherited openapi3.Parameters
	if r.PathItem != nil {
		inherited = r.PathItem.Parameters
	}
	s.Arguments = mergeParameters(inherited, op.Parameters)
	if body := bodyArgument(op.RequestBody); body != nil {
		s.Arguments = append(s.Arguments, *body)
	}
	s.Outputs = outputs(op.Responses)
	return s
}

// extensionSet reports whether ext is present and not explicitly false.
func extensionSet(exts map[string]any, ext string) bool {
	v, ok := exts[ext]
	if !ok || v == nil {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	return true
}

// mergeParameters returns path-item parameters followed by operation
// parameters. An operation parameter overrides one with the same name and
// location.
func mergeParameters(inherited, own openapi3.Parameters) []Argument {
	var args []Argument
	index := make(map[string]int)
	for _, list := range []openapi3.Parameters{inherited, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			arg := Argument{
				Name:        p.Name,
				In:          p.In,
				Required:    p.Required,
				Type:        typeName(p.Schema),
				Description: p.Description,
			}
			key := p.In + "/" + p.Name
			if i, ok := index[key]; ok {
				args[i] = arg
				continue
			}
			index[key] = len(args)
			args = append(args, arg)
		}
	}
	return args
}

func bodyArgument(ref *openapi3.RequestBodyRef) *Argument {
	if ref == nil || ref.Value == nil {
		return nil
	}
	body := ref.Value
	arg := &Argument{
		Name:        "body",
		In:          "body",
		Required:    body.Required,
		Description: body.Description,
	}
	if name, ok := body.Extensions["x-originalParamName"].(string); ok && name != "" {
		arg.Name = name
	}

	schema := contentSchema(body.Content)
	arg.Type = typeName(schema)
	if schema != nil && schema.Value != nil {
		required := make(map[string]bool, len(schema.Value.Required))
		for _, name := range schema.Value.Required {
			required[name] = true
		}
		for _, name := range slices.Sorted(maps.Keys(schema.Value.Properties)) {
			arg.Properties = append(arg.Properties, Property{
				Name:     name,
				Type:     typeName(schema.Value.Properties[name]),
				Required: required[name],
			})
		}
	}
	return arg
}

func outputs(responses *openapi3.Responses) []Output {
	if responses == nil {
		return nil
	}
	m := responses.Map()
	var out []Output
	for _, status := range slices.Sorted(maps.Keys(m)) {
		ref := m[status]
		if ref == nil || ref.Value == nil {
			continue
		}
		o := Output{Status: status, Type: typeName(contentSchema(ref.Value.Content))}
		if ref.Value.Description != nil {
			o.Description = *ref.Value.Description
		}
		out = append(out, o)
	}
	return out
}

// contentSchema picks the JSON schema of content, falling back to the first
// media type in lexical order.
func contentSchema(content openapi3.Content) *openapi3.SchemaRef {
	if len(content) == 0 {
		return nil
	}
	if mt := content.Get("application/json"); mt != nil {
		return mt.Schema
	}
	first := slices.Sorted(maps.Keys(content))[0]
	if mt := content[first]; mt != nil {
		return mt.Schema
	}
	return nil
}

// typeName renders a schema as a short type expression: the referenced
// component name, "[]T" for arrays, or the JSON type.
func typeName(ref *openapi3.SchemaRef) string {
	if ref == nil {
		return ""
	}
	if ref.Ref != "" {
		return ref.Ref[strings.LastIndex(ref.Ref, "/")+1:]
	}
	s := ref.Value
	if s == nil {
		return ""
	}
	switch {
	case s.Type.Is(openapi3.TypeArray):
		return "[]" + typeName(s.Items)
	case s.Type == nil || len(*s.Type) == 0:
		if len(s.Properties) > 0 {
			return openapi3.TypeObject
		}
		return ""
	}
	name := strings.Join(*s.Type, "|")
	if s.Format != "" {
		name += "(" + s.Format + ")"
	}
	return name
}
