package detection

import (
	"image"

	"github.com/menta2k/scene-analyzer/pkg/processing"
	"github.com/menta2k/scene-analyzer/pkg/profile"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

// CropTooSmall is the analysis text of a detection whose padded crop is
// below the minimum size
const CropTooSmall = "Crop too small"

// GateConfig holds the deep-analysis policy constants
type GateConfig struct {
	Threshold   float64 // confidence must be strictly above this
	Padding     int     // pixels added on each side of the box before cropping
	MinCropSize int     // minimum crop width and height in pixels
}

// DefaultGateConfig returns the production policy
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Threshold:   0.85,
		Padding:     40,
		MinCropSize: 5,
	}
}

// Gate decides which detections receive deep analysis
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given policy
func NewGate(cfg GateConfig) Gate {
	return Gate{config: cfg}
}

// ShouldAnalyze reports whether deep analysis runs for a detection
func (g Gate) ShouldAnalyze(enabled bool, confidence float64, p profile.Profile) bool {
	return enabled && p.Analyzable && confidence > g.config.Threshold
}

// CropRegion pads the box, clamps it to the image and reports whether the
// result is large enough to analyze
func (g Gate) CropRegion(box types.PixelBox, width, height int) (image.Rectangle, bool) {
	r := processing.PaddedRegion(box, g.config.Padding, width, height)
	if r.Dx() < g.config.MinCropSize || r.Dy() < g.config.MinCropSize {
		return r, false
	}
	return r, true
}
