package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/pixeld/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
// Pass real handler implementations for the main server, or stub implementations
// for OpenAPI generation.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.PublicGet(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status. This endpoint does not require authentication."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", h.HealthCheck)

	// --- Version ---
	mw.PublicGet(api, "/api/v1/version", h.VersionCheck,
		mw.WithTags("Version"),
		mw.WithSummary("Daemon version"),
		mw.WithDescription("Returns the running daemon's version, commit, and build date. This endpoint does not require authentication."),
		mw.WithOperationID("getVersion"))

	// --- Areas ---
	mw.PublicGet(api, mw.AreasPath, h.Area.ListAreas,
		mw.AreaOp("listAreas", "List all areas",
			"Returns every defined area with its current state, ordered by id."))

	mw.PublicGet(api, mw.AreaPath(""), h.Area.GetArea,
		mw.AreaOp("getArea", "Get an area",
			"Returns the area's length and current state."))

	mw.ProtectedPost(api, mw.AreaPath("/state"), h.Area.SetAreaState,
		mw.AreaOp("setAreaState", "Set area state",
			"Applies a partial command (state, color, brightness, transition). Absent fields keep their current value."))

	mw.ProtectedPost(api, mw.AreaPath("/effect"), h.Area.SetAreaEffect,
		mw.AreaOp("setAreaEffect", "Start an effect",
			"Binds rainbow, wave or cylon to an area, replacing whatever it was running. The name none stops the effect."))

	// --- Strips ---
	mw.PublicGet(api, "/api/v1/strips", h.Area.ListStrips,
		mw.WithTags("Strips"),
		mw.WithSummary("List strips"),
		mw.WithDescription("Returns the physical strips in wiring order with their logical offsets."),
		mw.WithOperationID("listStrips"))

	// --- Logging ---
	mw.ProtectedGet(api, "/api/v1/logging/level", h.Logging.GetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Get global log level"),
		mw.WithOperationID("getLogLevel"))

	mw.ProtectedPut(api, "/api/v1/logging/level", h.Logging.SetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Set global log level"),
		mw.WithDescription("Changes the global log level at runtime. Valid values: debug, info, warn, error."),
		mw.WithOperationID("setLogLevel"))
}
