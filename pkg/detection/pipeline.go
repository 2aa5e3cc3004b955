// Package detection turns raw detector output into enriched detections,
// running gated deep analysis on the objects that qualify.
package detection

import (
	"context"
	"image"
	"log/slog"

	apperrors "github.com/menta2k/scene-analyzer/internal/errors"
	"github.com/menta2k/scene-analyzer/internal/logging"
	"github.com/menta2k/scene-analyzer/pkg/describer"
	"github.com/menta2k/scene-analyzer/pkg/processing"
	"github.com/menta2k/scene-analyzer/pkg/profile"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

// RegionDescriber describes a cropped region
type RegionDescriber interface {
	Describe(ctx context.Context, img image.Image, kind types.TaskKind, hint string) describer.Result
}

// Pipeline composes normalization, profile lookup, the gate and the describer
type Pipeline struct {
	registry  *profile.Registry
	gate      Gate
	describer RegionDescriber
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. describer may be nil when only plain
// detection is needed.
func NewPipeline(registry *profile.Registry, gate Gate, d RegionDescriber, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		registry:  registry,
		gate:      gate,
		describer: d,
		logger:    logging.Component(logger, "pipeline"),
	}
}

// DetectAndEnrich builds one Detection per raw detection, in input order.
// Deep analysis always uses the caption task. A failing analysis only
// affects its own detection.
func (p *Pipeline) DetectAndEnrich(ctx context.Context, img image.Image, raw []types.RawDetection, deep bool) ([]types.Detection, error) {
	if img == nil {
		return nil, apperrors.New(apperrors.KindInput, "detect", "no image provided")
	}
	if deep && p.describer == nil {
		return nil, apperrors.New(apperrors.KindEngineUnavailable, "detect", "vision engine not loaded")
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= 0 || h <= 0 {
		return nil, apperrors.Newf(apperrors.KindInput, "detect", "invalid image dimensions %dx%d", w, h)
	}

	out := make([]types.Detection, 0, len(raw))
	for _, r := range raw {
		box, err := processing.NormalizeBox(r.Box, w, h)
		if err != nil {
			return nil, err
		}
		prof := p.registry.Lookup(r.ClassName)

		var analysis string
		if p.gate.ShouldAnalyze(deep, r.Confidence, prof) {
			analysis = p.analyze(ctx, img, r)
		}

		out = append(out, types.Detection{
			ClassName:  r.ClassName,
			Confidence: processing.Round3(r.Confidence),
			Box:        box,
			Analysis:   analysis,
			Color:      prof.Color,
			Category:   prof.Category,
			Analyzable: prof.Analyzable,
		})
	}
	p.logger.Info("detections enriched", "count", len(out), "deep", deep)
	return out, nil
}

func (p *Pipeline) analyze(ctx context.Context, img image.Image, r types.RawDetection) string {
	region, ok := p.gate.CropRegion(r.Box, img.Bounds().Dx(), img.Bounds().Dy())
	if !ok {
		p.logger.Warn("crop too small", "class", r.ClassName, "size", region.Size())
		return CropTooSmall
	}
	res := p.describer.Describe(ctx, processing.Crop(img, region), types.Caption, "")
	text := describer.Extract(res, types.CaptionMarker)
	p.logger.Debug("region analyzed", "class", r.ClassName, "analysis", text)
	return text
}

// AnalyzeRegion describes the part of img under rect (percent of the image)
// using the class profile's own task and hint
func (p *Pipeline) AnalyzeRegion(ctx context.Context, img image.Image, rect types.Rect, className string) (string, error) {
	if img == nil {
		return "", apperrors.New(apperrors.KindInput, "analyze_region", "no image provided")
	}
	if rect.Width < 0 || rect.Height < 0 {
		return "", apperrors.Newf(apperrors.KindInput, "analyze_region", "invalid region %+v", rect)
	}
	if p.describer == nil {
		return "", apperrors.New(apperrors.KindEngineUnavailable, "analyze_region", "vision engine not loaded")
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= 0 || h <= 0 {
		return "", apperrors.Newf(apperrors.KindInput, "analyze_region", "invalid image dimensions %dx%d", w, h)
	}

	region, ok := p.gate.CropRegion(processing.RectToPixels(rect, w, h), w, h)
	if !ok {
		return CropTooSmall, nil
	}

	prof := p.registry.Lookup(className)
	p.logger.Info("analyzing region", "type", className, "task", prof.Task, "size", region.Size())
	res := p.describer.Describe(ctx, processing.Crop(img, region), prof.Task, prof.Prompt)
	return describer.Extract(res, prof.Task.Marker()), nil
}
