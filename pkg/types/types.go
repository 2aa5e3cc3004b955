package types

import (
	"fmt"
	"strings"
)

// Box is a bounding box in percentage space, each coordinate in [0,100]
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// PixelBox is a bounding box in image pixel coordinates
type PixelBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Rect is the overlay shape drawn by the scanning UI: top-left corner plus
// extent, all in percent of the image
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RawDetection is one object reported by the detector engine
type RawDetection struct {
	ClassName  string   `json:"class"`
	Confidence float64  `json:"confidence"`
	Box        PixelBox `json:"box"`
}

// Detection is one enriched object instance returned to the client
type Detection struct {
	ClassName  string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"bbox"`
	Analysis   string  `json:"analysis"`
	Color      string  `json:"color"`
	Category   string  `json:"category"`
	Analyzable bool    `json:"is_analyzable"`
}

// Rect converts the detection box into the overlay shape
func (d Detection) Rect() Rect {
	return Rect{
		X:      d.Box.X1,
		Y:      d.Box.Y1,
		Width:  d.Box.X2 - d.Box.X1,
		Height: d.Box.Y2 - d.Box.Y1,
	}
}

// TaskKind selects how the region describer prompts the vision engine
type TaskKind int

const (
	Caption TaskKind = iota
	VQA
)

// Task markers understood by the vision-language engine
const (
	CaptionMarker = "<DETAILED_CAPTION>"
	VQAMarker     = "<VQA>"
)

// Marker returns the task marker for the kind
func (k TaskKind) Marker() string {
	switch k {
	case VQA:
		return VQAMarker
	default:
		return CaptionMarker
	}
}

func (k TaskKind) String() string {
	switch k {
	case Caption:
		return "caption"
	case VQA:
		return "vqa"
	default:
		return fmt.Sprintf("TaskKind(%d)", int(k))
	}
}

// ParseTaskKind accepts "caption", "vqa" or the raw task markers
func ParseTaskKind(s string) (TaskKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "caption", strings.ToLower(CaptionMarker):
		return Caption, nil
	case "vqa", strings.ToLower(VQAMarker):
		return VQA, nil
	default:
		return Caption, fmt.Errorf("unknown task kind: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (k TaskKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *TaskKind) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// RefineMode selects the query shape sent to the instruction engine
type RefineMode string

const (
	ModeSummarize RefineMode = "summarize"
	ModeRefine    RefineMode = "refine"
)

// RefineResult is the outcome of one refinement call
type RefineResult struct {
	Text      string `json:"summary"`
	Cancelled bool   `json:"cancelled"`
}
