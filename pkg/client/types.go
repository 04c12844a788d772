package client

// State is the reported state of an area.
type State struct {
	State      string `json:"state"`
	Brightness int    `json:"brightness"`
	ColorMode  string `json:"color_mode"`
	Effect     string `json:"effect"`
	Color      struct {
		H float64 `json:"h"`
		S float64 `json:"s"`
	} `json:"color"`
}

// On reports whether the area is lit.
func (s State) On() bool {
	return s.State == "ON"
}

// Area is a defined area and its state.
type Area struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Length int    `json:"length"`
	State  State  `json:"state"`
}

// Command is a partial area update; nil fields are left unchanged.
type Command struct {
	State      *string       `json:"state,omitempty"`
	Color      *CommandColor `json:"color,omitempty"`
	Brightness *float64      `json:"brightness,omitempty"`
	Transition *float64      `json:"transition,omitempty"`
}

// CommandColor is hue in degrees and saturation in percent.
type CommandColor struct {
	H *float64 `json:"h,omitempty"`
	S *float64 `json:"s,omitempty"`
}

// Effect names a continuous effect and its parameters.
type Effect struct {
	Name     string  `json:"name"`
	Rate     float64 `json:"rate,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Shape    string  `json:"shape,omitempty"`
}

// Strip is one physical strip.
type Strip struct {
	Pin      int  `json:"pin"`
	Offset   int  `json:"offset"`
	Length   int  `json:"length"`
	Reversed bool `json:"reversed"`
}

// Layout is the strip wiring.
type Layout struct {
	Pixels int     `json:"pixels"`
	Strips []Strip `json:"strips"`
}

// Version identifies a daemon build.
type Version struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}
