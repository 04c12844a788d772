// Package handlers provides typed Huma request/response structs and handler
// implementations for the pixeld HTTP API.
package handlers

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/pixeld/internal/engine"
	"github.com/jmylchreest/pixeld/internal/errors"
	"github.com/jmylchreest/pixeld/pkg/pixel"
)

// AreaController is the part of the engine the API drives.
type AreaController interface {
	Resolve(ref string) (int, error)
	Areas() []engine.AreaInfo
	Area(id int) (engine.AreaInfo, error)
	Apply(id int, cmd engine.Command) (engine.Notification, error)
	StartEffect(id int, req engine.EffectRequest) (engine.Notification, error)
	Strips() []pixel.Strip
}

var _ AreaController = (*engine.Engine)(nil)

// --- Area types ---

// AreaResponse is the API representation of an area.
type AreaResponse struct {
	ID     int                 `json:"id" doc:"Area identifier (0-9)"`
	Name   string              `json:"name" doc:"Area name"`
	Length int                 `json:"length" doc:"Number of pixels in the area"`
	State  engine.Notification `json:"state" doc:"Current area state"`
}

// AreaFromInfo converts an engine.AreaInfo to an AreaResponse.
func AreaFromInfo(a engine.AreaInfo) AreaResponse {
	return AreaResponse{ID: a.ID, Name: a.Name, Length: a.Length, State: a.State}
}

// AreasFromInfo converts a listing.
func AreasFromInfo(areas []engine.AreaInfo) []AreaResponse {
	result := make([]AreaResponse, len(areas))
	for i, a := range areas {
		result[i] = AreaFromInfo(a)
	}
	return result
}

// --- Strip types ---

// StripResponse is the API representation of a physical strip.
type StripResponse struct {
	Pin      int  `json:"pin" doc:"Output pin"`
	Offset   int  `json:"offset" doc:"First logical index"`
	Length   int  `json:"length" doc:"Number of pixels"`
	Reversed bool `json:"reversed" doc:"Whether the strip is wired end first"`
}

// StripsFromPixel converts the strip layout.
func StripsFromPixel(strips []pixel.Strip) []StripResponse {
	result := make([]StripResponse, len(strips))
	for i, s := range strips {
		result[i] = StripResponse{Pin: s.Pin, Offset: s.Offset, Length: s.Length, Reversed: s.Reversed}
	}
	return result
}

// --- Common response types ---

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status" doc:"Operation status"`
}

// apiError maps the daemon's error kinds to HTTP status codes.
func apiError(err error) error {
	switch {
	case errors.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case errors.IsInvalidInput(err):
		return huma.Error400BadRequest(err.Error())
	case errors.IsHardwareUnavailable(err):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.IsInternal(err):
		// The wrapped detail is for the log, not the caller.
		return huma.Error500InternalServerError(errors.ErrInternal.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
