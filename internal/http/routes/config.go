// Package routes provides shared route registration for the pixeld HTTP API.
// Both the main server and the OpenAPI generator use the same route definitions,
// so the published document always matches the served API.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/pixeld/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("pixeld API", version)
	cfg.Info.Description = "REST API for controlling addressable LED areas via the pixeld daemon."

	// Disable $schema field in responses
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "API key authentication. Include your API key as `Authorization: Bearer <key>` or `X-API-Key: <key>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Areas", Description: "Area state and effects"},
		{Name: "Strips", Description: "Physical strip layout"},
		{Name: "Logging", Description: "Runtime log level management"},
	}

	return cfg
}
