package client

import (
	"context"
	"errors"
	"image"

	"github.com/menta2k/scene-analyzer/pkg/types"
)

// ErrStopped is returned by engine adapters from inside a streaming callback
// when the step function asked generation to halt.
var ErrStopped = errors.New("generation stopped by caller")

// Detector finds objects in an image and reports pixel-space boxes
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]types.RawDetection, error)
}

// VisionInput is the model input built by the region describer
type VisionInput struct {
	Prompt string
	Image  []byte // JPEG encoded, 3-channel
	Width  int
	Height int
}

// VisionEngine runs the vision-language model and returns decoded text
type VisionEngine interface {
	Generate(ctx context.Context, in VisionInput) (string, error)
}

// CaptionPostProcessor turns raw caption output into the structured caption
type CaptionPostProcessor interface {
	PostProcess(raw, taskMarker string, width, height int) (string, error)
}

// Message is one chat turn sent to the instruction engine
type Message struct {
	Role    string
	Content string
}

// GenerateOptions controls text decoding
type GenerateOptions struct {
	MaxTokens     int
	Deterministic bool
}

// StepFunc is called once per generated token; returning false halts generation
type StepFunc func(token string) bool

// TextEngine runs the instruction-following model
type TextEngine interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions, step StepFunc) (string, error)
}
