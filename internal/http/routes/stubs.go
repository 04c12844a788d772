package routes

import (
	"context"

	"github.com/jmylchreest/pixeld/internal/http/handlers"
)

// StubHandlers returns a Handlers instance with stub implementations.
// All handlers return nil responses. They are only used for OpenAPI generation
// where Huma extracts type information from function signatures.
func StubHandlers() *Handlers {
	return &Handlers{
		HealthCheck: func(_ context.Context, _ *handlers.HealthInput) (*handlers.HealthOutput, error) {
			return nil, nil
		},
		VersionCheck: func(_ context.Context, _ *handlers.VersionInput) (*handlers.VersionOutput, error) {
			return nil, nil
		},
		Area:    &stubAreaHandlers{},
		Logging: &stubLoggingHandlers{},
	}
}

// --- Area stubs ---

type stubAreaHandlers struct{}

func (s *stubAreaHandlers) ListAreas(_ context.Context, _ *handlers.ListAreasInput) (*handlers.ListAreasOutput, error) {
	return nil, nil
}

func (s *stubAreaHandlers) GetArea(_ context.Context, _ *handlers.GetAreaInput) (*handlers.GetAreaOutput, error) {
	return nil, nil
}

func (s *stubAreaHandlers) SetAreaState(_ context.Context, _ *handlers.SetAreaStateInput) (*handlers.SetAreaStateOutput, error) {
	return nil, nil
}

func (s *stubAreaHandlers) SetAreaEffect(_ context.Context, _ *handlers.SetAreaEffectInput) (*handlers.SetAreaEffectOutput, error) {
	return nil, nil
}

func (s *stubAreaHandlers) ListStrips(_ context.Context, _ *handlers.ListStripsInput) (*handlers.ListStripsOutput, error) {
	return nil, nil
}

// --- Logging stubs ---

type stubLoggingHandlers struct{}

func (s *stubLoggingHandlers) GetLevel(_ context.Context, _ *handlers.GetLevelInput) (*handlers.GetLevelOutput, error) {
	return nil, nil
}

func (s *stubLoggingHandlers) SetLevel(_ context.Context, _ *handlers.SetLevelInput) (*handlers.SetLevelOutput, error) {
	return nil, nil
}
