package detection

import (
	"image"
	"testing"

	"github.com/menta2k/scene-analyzer/pkg/profile"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

func TestShouldAnalyze(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	analyzable := profile.Profile{Analyzable: true}
	locked := profile.Profile{Analyzable: false}

	tests := []struct {
		name       string
		enabled    bool
		confidence float64
		profile    profile.Profile
		want       bool
	}{
		{"all conditions hold", true, 0.90, analyzable, true},
		{"disabled by caller", false, 0.99, analyzable, false},
		{"profile not analyzable", true, 0.99, locked, false},
		{"threshold is strict", true, 0.85, analyzable, false},
		{"just above threshold", true, 0.8500001, analyzable, true},
		{"low confidence", true, 0.30, analyzable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.ShouldAnalyze(tt.enabled, tt.confidence, tt.profile); got != tt.want {
				t.Errorf("ShouldAnalyze = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCropRegion(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	r, ok := g.CropRegion(types.PixelBox{X1: 100, Y1: 100, X2: 200, Y2: 150}, 1000, 500)
	if !ok || r != image.Rect(60, 60, 240, 190) {
		t.Errorf("CropRegion = %v, %v", r, ok)
	}

	// Box beyond the right edge of a 50x50 image collapses to nothing.
	if _, ok := g.CropRegion(types.PixelBox{X1: 95, Y1: 10, X2: 99, Y2: 20}, 50, 50); ok {
		t.Error("expected crop too small")
	}

	// A 4 pixel wide image can never yield a valid crop.
	if _, ok := g.CropRegion(types.PixelBox{X1: 0, Y1: 0, X2: 4, Y2: 4}, 4, 100); ok {
		t.Error("expected crop too small for narrow image")
	}
}
