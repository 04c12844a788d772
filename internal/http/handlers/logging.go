package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/pixeld/internal/logging"
)

// --- Get Level ---

// GetLevelInput is the input for reading the log level.
type GetLevelInput struct{}

// GetLevelOutput is the current global log level.
type GetLevelOutput struct {
	Body struct {
		Level string `json:"level" doc:"Current global log level"`
	}
}

// --- Set Level ---

// SetLevelInput is the input for changing the global log level.
type SetLevelInput struct {
	Body struct {
		Level string `json:"level" doc:"New log level (debug, info, warn, error)" minLength:"1"`
	}
}

// SetLevelOutput is the output after changing the log level.
type SetLevelOutput struct {
	Body struct {
		Level string `json:"level" doc:"Updated global log level"`
	}
}

// LoggingHandler implements logging management HTTP handlers.
type LoggingHandler struct {
	Logger *slog.Logger
}

// GetLevel returns the current log level.
func (h *LoggingHandler) GetLevel(_ context.Context, _ *GetLevelInput) (*GetLevelOutput, error) {
	out := &GetLevelOutput{}
	out.Body.Level = logging.Level()
	return out, nil
}

// SetLevel validates and changes the global log level at runtime.
func (h *LoggingHandler) SetLevel(_ context.Context, input *SetLevelInput) (*SetLevelOutput, error) {
	if !logging.IsValidLogLevel(input.Body.Level) {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("Invalid log level %q; must be debug, info, warn, or error", input.Body.Level))
	}

	logging.SetLevel(input.Body.Level)
	h.Logger.Info("Log level changed via API", "level", logging.Level())

	out := &SetLevelOutput{}
	out.Body.Level = logging.Level()
	return out, nil
}

// Ensure LoggingHandler implements the interface at compile time.
var _ LoggingHandlers = (*LoggingHandler)(nil)

// LoggingHandlers defines the interface for logging management operations.
type LoggingHandlers interface {
	GetLevel(ctx context.Context, input *GetLevelInput) (*GetLevelOutput, error)
	SetLevel(ctx context.Context, input *SetLevelInput) (*SetLevelOutput, error)
}
