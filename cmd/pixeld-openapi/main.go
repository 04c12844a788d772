// Command pixeld-openapi prints the OpenAPI document of the pixeld HTTP API.
// Routes are registered against stub handlers so no engine or hardware is
// needed.
//
// Usage:
//
//	go run ./cmd/pixeld-openapi > openapi.json
//	go run ./cmd/pixeld-openapi --yaml -o openapi.yaml
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pixeld/internal/http/routes"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	output := pflag.StringP("output", "o", "", "Output file path (default: stdout)")
	asYAML := pflag.Bool("yaml", false, "Output as YAML instead of JSON")
	baseURL := pflag.String("base-url", "", "Base URL for the API server")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	data, err := generate(*baseURL, *asYAML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshaling OpenAPI spec: %v\n", err)
		os.Exit(1)
	}

	if *output == "" {
		_, _ = io.WriteString(os.Stdout, string(data))
		return
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing to file: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "OpenAPI spec written to %s\n", *output)
}

// generate renders the document as JSON or YAML.
func generate(baseURL string, asYAML bool) ([]byte, error) {
	api := humachi.New(chi.NewRouter(), routes.NewHumaConfig(version, baseURL))
	routes.Register(api, routes.StubHandlers())

	doc := api.OpenAPI()
	if asYAML {
		return yaml.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}
