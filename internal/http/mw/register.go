// Package mw provides middleware and registration helpers for the pixeld HTTP API.
package mw

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// SecurityScheme is the name of the security scheme used in OpenAPI.
const SecurityScheme = "apiKeyAuth"

// AreasPath is the collection every area operation hangs off.
const AreasPath = "/api/v1/areas"

// AreaPath returns the path of an operation on one area, addressed by name
// or numeric id in the {area} segment.
func AreaPath(suffix string) string {
	return AreasPath + "/{area}" + suffix
}

// OperationOption is a function that modifies a Huma operation.
type OperationOption func(*huma.Operation)

// WithTags adds tags to the operation.
func WithTags(tags ...string) OperationOption {
	return func(op *huma.Operation) {
		op.Tags = append(op.Tags, tags...)
	}
}

// WithSummary sets the operation summary.
func WithSummary(summary string) OperationOption {
	return func(op *huma.Operation) {
		op.Summary = summary
	}
}

// WithDescription sets the operation description.
func WithDescription(desc string) OperationOption {
	return func(op *huma.Operation) {
		op.Description = desc
	}
}

// WithOperationID sets a custom operation ID.
func WithOperationID(id string) OperationOption {
	return func(op *huma.Operation) {
		op.OperationID = id
	}
}

// AreaOp describes an area operation: Areas tag, id, summary and a
// description that notes how the area is addressed when the path has one.
func AreaOp(id, summary, desc string) OperationOption {
	return func(op *huma.Operation) {
		op.Tags = append(op.Tags, "Areas")
		op.OperationID = id
		op.Summary = summary
		op.Description = desc
		if op.Path != AreasPath {
			op.Description += " The {area} segment is an area name or numeric id; unknown areas return 404."
		}
	}
}

// register applies opts after method, path and security are set so options
// can inspect them.
func register[I, O any](api huma.API, op huma.Operation, handler func(context.Context, *I) (*O, error), opts []OperationOption) {
	for _, opt := range opts {
		opt(&op)
	}
	huma.Register(api, op, handler)
}

func protected() []map[string][]string {
	return []map[string][]string{{SecurityScheme: {}}}
}

// PublicGet registers a GET endpoint that needs no API key.
func PublicGet[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, huma.Operation{Method: http.MethodGet, Path: path}, handler, opts)
}

// HiddenGet registers a GET endpoint left out of the OpenAPI document, for
// health checks.
func HiddenGet[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error)) {
	register(api, huma.Operation{Method: http.MethodGet, Path: path, Hidden: true}, handler, nil)
}

// ProtectedGet registers a GET endpoint that requires an API key when keys
// are configured.
func ProtectedGet[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, huma.Operation{Method: http.MethodGet, Path: path, Security: protected()}, handler, opts)
}

// ProtectedPost registers a POST endpoint that changes area state.
func ProtectedPost[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, huma.Operation{Method: http.MethodPost, Path: path, Security: protected()}, handler, opts)
}

// ProtectedPut registers a PUT endpoint that requires an API key.
func ProtectedPut[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, huma.Operation{Method: http.MethodPut, Path: path, Security: protected()}, handler, opts)
}
