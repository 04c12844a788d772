package handlers

import (
	"context"

	"github.com/jmylchreest/pixeld/internal/engine"
)

// --- List Areas ---

// ListAreasInput is the input for listing all areas.
type ListAreasInput struct{}

// ListAreasOutput is the output for listing all areas.
type ListAreasOutput struct {
	Body []AreaResponse
}

// --- Get Area ---

// GetAreaInput is the input for getting a single area.
type GetAreaInput struct {
	Area string `path:"area" doc:"Area name or numeric id"`
}

// GetAreaOutput is the output for getting a single area.
type GetAreaOutput struct {
	Body AreaResponse
}

// --- Set Area State ---

// SetAreaStateInput applies a command to an area. Absent fields keep their
// current value.
type SetAreaStateInput struct {
	Area string `path:"area" doc:"Area name or numeric id"`
	Body engine.Command
}

// SetAreaStateOutput is the area state after the command.
type SetAreaStateOutput struct {
	Body engine.Notification
}

// --- Set Area Effect ---

// SetAreaEffectInput binds a continuous effect to an area.
type SetAreaEffectInput struct {
	Area string `path:"area" doc:"Area name or numeric id"`
	Body struct {
		Name     string  `json:"name" doc:"Effect name: rainbow, wave, cylon or none" enum:"rainbow,wave,cylon,none"`
		Rate     float64 `json:"rate,omitempty" doc:"Seconds per cycle (rainbow, cylon) or cycles per second (wave)"`
		Width    float64 `json:"width,omitempty" doc:"Pixels per cycle (rainbow, wave) or band width (cylon)"`
		Duration float64 `json:"duration,omitempty" doc:"Seconds to run for, 0 to run until replaced" minimum:"0"`
		Shape    string  `json:"shape,omitempty" doc:"Wave shape" enum:"triangle,sine"`
	}
}

// SetAreaEffectOutput is the area state after binding the effect.
type SetAreaEffectOutput struct {
	Body engine.Notification
}

// --- List Strips ---

// ListStripsInput is the input for listing strips.
type ListStripsInput struct{}

// ListStripsOutput is the strip layout in wiring order.
type ListStripsOutput struct {
	Body struct {
		Pixels int             `json:"pixels" doc:"Total pixel count"`
		Strips []StripResponse `json:"strips" doc:"Strips in declaration order"`
	}
}

// AreaHandler implements area-related HTTP handlers.
type AreaHandler struct {
	Areas AreaController
}

// ListAreas returns every defined area.
func (h *AreaHandler) ListAreas(_ context.Context, _ *ListAreasInput) (*ListAreasOutput, error) {
	return &ListAreasOutput{Body: AreasFromInfo(h.Areas.Areas())}, nil
}

// GetArea returns a single area by name or id.
func (h *AreaHandler) GetArea(_ context.Context, input *GetAreaInput) (*GetAreaOutput, error) {
	id, err := h.Areas.Resolve(input.Area)
	if err != nil {
		return nil, apiError(err)
	}
	info, err := h.Areas.Area(id)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetAreaOutput{Body: AreaFromInfo(info)}, nil
}

// SetAreaState applies a command to an area.
func (h *AreaHandler) SetAreaState(_ context.Context, input *SetAreaStateInput) (*SetAreaStateOutput, error) {
	id, err := h.Areas.Resolve(input.Area)
	if err != nil {
		return nil, apiError(err)
	}
	n, err := h.Areas.Apply(id, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &SetAreaStateOutput{Body: n}, nil
}

// SetAreaEffect starts or stops an effect on an area.
func (h *AreaHandler) SetAreaEffect(_ context.Context, input *SetAreaEffectInput) (*SetAreaEffectOutput, error) {
	id, err := h.Areas.Resolve(input.Area)
	if err != nil {
		return nil, apiError(err)
	}
	n, err := h.Areas.StartEffect(id, engine.EffectRequest{
		Name:     input.Body.Name,
		Area:     input.Area,
		Rate:     input.Body.Rate,
		Width:    input.Body.Width,
		Duration: input.Body.Duration,
		Shape:    input.Body.Shape,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &SetAreaEffectOutput{Body: n}, nil
}

// ListStrips returns the strip layout.
func (h *AreaHandler) ListStrips(_ context.Context, _ *ListStripsInput) (*ListStripsOutput, error) {
	strips := h.Areas.Strips()
	out := &ListStripsOutput{}
	out.Body.Strips = StripsFromPixel(strips)
	for _, s := range strips {
		out.Body.Pixels += s.Length
	}
	return out, nil
}

// Ensure AreaHandler implements the interface at compile time.
var _ AreaHandlers = (*AreaHandler)(nil)

// AreaHandlers defines the interface for area operations.
type AreaHandlers interface {
	ListAreas(ctx context.Context, input *ListAreasInput) (*ListAreasOutput, error)
	GetArea(ctx context.Context, input *GetAreaInput) (*GetAreaOutput, error)
	SetAreaState(ctx context.Context, input *SetAreaStateInput) (*SetAreaStateOutput, error)
	SetAreaEffect(ctx context.Context, input *SetAreaEffectInput) (*SetAreaEffectOutput, error)
	ListStrips(ctx context.Context, input *ListStripsInput) (*ListStripsOutput, error)
}
