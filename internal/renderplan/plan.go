package renderplan

import (
	"encoding/json"
	"fmt"
)

// Transition kinds supported by the encoder filtergraph.
const (
	TransitionCut        = "cut"
	TransitionFadeBlack  = "fadeblack"
	TransitionSlideLeft  = "slideleft"
	TransitionCircleCrop = "circlecrop"
	TransitionPixelize   = "pixelize"
	TransitionZoomIn     = "zoomin"
)

// Caption track modes.
const (
	CaptionTypewriter = "typewriter"
	CaptionStatic     = "static"
)

// Overlay layer kinds, listed in compositing order.
const (
	LayerBase      = "base"
	LayerBranding  = "branding"
	LayerCaptions  = "captions"
	LayerWatermark = "watermark"
)

// CropRect is a normalized source-image window. Coordinates and extents
// are fractions of the source dimensions; W and H always describe a 9:16
// region of the source.
type CropRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Segment is one still image on the timeline. Seconds is the input
// duration fed to the encoder; Display is the net on-screen time after
// the adjoining transition halves are subtracted. Motion holds one crop
// per output frame.
type Segment struct {
	Index   int        `json:"index"`
	Image   string     `json:"image"`
	Seconds float64    `json:"seconds"`
	Display float64    `json:"display"`
	Frames  int        `json:"frames"`
	ZoomIn  bool       `json:"zoom_in"`
	Motion  []CropRect `json:"motion,omitempty"`
}

// Transition joins segment i and i+1. Offset is the timeline position
// where the blend begins, already corrected for earlier overlaps.
type Transition struct {
	Kind    string  `json:"kind"`
	Seconds float64 `json:"seconds"`
	Offset  float64 `json:"offset"`
}

// CaptionFrame is one caption window on the timeline.
type CaptionFrame struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	FontSize  int     `json:"font_size"`
	Truncated bool    `json:"truncated,omitempty"`
}

// CaptionTrack carries all caption windows plus their shared placement.
// AnchorY is the vertical anchor as a fraction of frame height; captions
// are always centered horizontally.
type CaptionTrack struct {
	Mode    string         `json:"mode"`
	AnchorY float64        `json:"anchor_y"`
	Frames  []CaptionFrame `json:"frames,omitempty"`
}

// TitleWindow shows a headline over a span of the timeline. Single runs
// carry one window for the whole video; digest runs carry one per story.
type TitleWindow struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Layer is one compositing input.
type Layer struct {
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
}

// Overlay describes the fixed compositing order for a render.
type Overlay struct {
	Enabled bool    `json:"enabled"`
	Layers  []Layer `json:"layers"`
}

// AudioPart is one narration track in digest order. The encoder
// concatenates them, resolving silence references as it goes.
type AudioPart struct {
	Ref     string  `json:"ref"`
	Seconds float64 `json:"seconds"`
}

// Plan is the complete declarative timeline for one render.
type Plan struct {
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	FPS              int          `json:"fps"`
	AudioRef         string       `json:"audio_ref,omitempty"`
	AudioParts       []AudioPart  `json:"audio_parts,omitempty"`
	NarrationSeconds float64      `json:"narration_seconds"`
	Segments         []Segment    `json:"segments"`
	Transitions      []Transition `json:"transitions,omitempty"`
	Captions         CaptionTrack `json:"captions"`
	Titles           []TitleWindow `json:"titles,omitempty"`
	Overlay          Overlay      `json:"overlay"`
	Output           string       `json:"output"`
}

// RenderSeconds returns the finished video length: input durations minus
// the transition overlaps, each counted once.
func (p *Plan) RenderSeconds() float64 {
	total := 0.0
	for _, seg := range p.Segments {
		total += seg.Seconds
	}
	for _, tr := range p.Transitions {
		total -= tr.Seconds
	}
	return total
}

// Marshal serializes the plan for the run directory debug artifact.
func (p *Plan) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal render plan: %w", err)
	}
	return data, nil
}
