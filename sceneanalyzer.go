// Package sceneanalyzer turns camera frames into enriched object detections.
//
// A detector engine finds objects, every detection is tagged with its class
// profile (overlay color, category, analysis policy) and, when deep analysis
// is requested, confident detections of analyzable classes are cropped and
// described by a vision-language model. A separate instruction-following
// model summarizes or refines descriptions on demand; a newer refinement
// request cancels any older one still generating.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		sceneanalyzer "github.com/menta2k/scene-analyzer"
//		"github.com/menta2k/scene-analyzer/pkg/ollama"
//		"github.com/menta2k/scene-analyzer/pkg/processing"
//		"github.com/menta2k/scene-analyzer/pkg/yolo"
//	)
//
//	func main() {
//		detector, err := yolo.NewDetector("http://localhost:8000/predict")
//		if err != nil {
//			log.Fatal(err)
//		}
//		llm, err := ollama.NewClient("http://localhost:11434")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		a, err := sceneanalyzer.New(sceneanalyzer.Engines{
//			Detector: detector,
//			Vision:   llm.Vision("llava:7b"),
//			Text:     llm.Text("qwen2.5:1.5b-instruct"),
//		}, sceneanalyzer.DefaultOptions())
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		img, err := processing.NewProcessor().LoadImage("street.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		detections, err := a.DetectAndAnalyze(context.Background(), img, true)
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, d := range detections {
//			fmt.Printf("%s %.2f %s\n", d.ClassName, d.Confidence, d.Analysis)
//		}
//	}
//
// The package consists of these components:
//
//  1. Profiles (pkg/profile): per-class color, category and analysis policy
//  2. Detection (pkg/detection): normalization, the analysis gate and the pipeline
//  3. Describer (pkg/describer): crop-level captioning and question answering
//  4. Refine (pkg/refine): summarize/refine with newest-wins cancellation
//  5. Engines (pkg/yolo, pkg/ollama, pkg/llamacpp): inference adapters
package sceneanalyzer

import (
	"context"
	"image"
	"log/slog"

	apperrors "github.com/menta2k/scene-analyzer/internal/errors"
	"github.com/menta2k/scene-analyzer/internal/logging"
	"github.com/menta2k/scene-analyzer/pkg/client"
	"github.com/menta2k/scene-analyzer/pkg/describer"
	"github.com/menta2k/scene-analyzer/pkg/detection"
	"github.com/menta2k/scene-analyzer/pkg/profile"
	"github.com/menta2k/scene-analyzer/pkg/refine"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

// Version of the scene analyzer library
const Version = "1.0.0"

// Engines are the inference backends. Any of them may be nil; operations
// that need a missing engine fail with an engine-unavailable error.
type Engines struct {
	Detector      client.Detector
	Vision        client.VisionEngine
	PostProcessor client.CaptionPostProcessor // nil means describer.CaptionCleaner
	Text          client.TextEngine
}

// Options tune the pipeline
type Options struct {
	Registry  *profile.Registry // nil means the built-in table
	Gate      detection.GateConfig
	Describer describer.Config
	Refine    refine.Config
	Logger    *slog.Logger
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		Gate:      detection.DefaultGateConfig(),
		Describer: describer.DefaultConfig(),
		Refine:    refine.Config{MaxTokens: refine.DefaultMaxTokens},
	}
}

// Status reports which engines are loaded
type Status struct {
	Version  string `json:"version"`
	Detector bool   `json:"detector"`
	Vision   bool   `json:"vision"`
	Text     bool   `json:"text"`
	Profiles int    `json:"profiles"`
}

// Analyzer is the entry point for all scene operations. It is safe for
// concurrent use.
type Analyzer struct {
	engines  Engines
	registry *profile.Registry
	pipeline *detection.Pipeline
	refiner  *refine.Manager
	logger   *slog.Logger
}

// New wires an analyzer from engines and options
func New(engines Engines, opts Options) (*Analyzer, error) {
	registry := opts.Registry
	if registry == nil {
		var err error
		registry, err = profile.Default()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindConfig, "init", "failed to load profiles", err)
		}
	}

	var d detection.RegionDescriber
	if engines.Vision != nil {
		d = describer.New(engines.Vision, engines.PostProcessor, opts.Describer, opts.Logger)
	}

	a := &Analyzer{
		engines:  engines,
		registry: registry,
		pipeline: detection.NewPipeline(registry, detection.NewGate(opts.Gate), d, opts.Logger),
		refiner:  refine.NewManager(engines.Text, registry, opts.Refine, opts.Logger),
		logger:   logging.Component(opts.Logger, "analyzer"),
	}
	a.logger.Info("analyzer ready",
		"detector", engines.Detector != nil,
		"vision", engines.Vision != nil,
		"text", engines.Text != nil,
		"profiles", registry.Len())
	return a, nil
}

// Detect runs the detector and returns enriched detections without deep
// analysis
func (a *Analyzer) Detect(ctx context.Context, img image.Image) ([]types.Detection, error) {
	return a.DetectAndAnalyze(ctx, img, false)
}

// DetectAndAnalyze runs the detector and, when deep is set, describes every
// detection that passes the analysis gate
func (a *Analyzer) DetectAndAnalyze(ctx context.Context, img image.Image, deep bool) ([]types.Detection, error) {
	if img == nil {
		return nil, apperrors.New(apperrors.KindInput, "detect", "no image provided")
	}
	if a.engines.Detector == nil {
		return nil, apperrors.New(apperrors.KindEngineUnavailable, "detect", "detector not loaded")
	}
	if deep && a.engines.Vision == nil {
		return nil, apperrors.New(apperrors.KindEngineUnavailable, "detect", "vision engine not loaded")
	}

	raw, err := a.engines.Detector.Detect(ctx, img)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEngine, "detect", "detector failed", err)
	}
	a.logger.Debug("detector finished", "raw", len(raw))

	return a.pipeline.DetectAndEnrich(ctx, img, raw, deep)
}

// AnalyzeRegion describes a user-selected region given in percent of the
// image, using the class profile's task and prompt
func (a *Analyzer) AnalyzeRegion(ctx context.Context, img image.Image, rect types.Rect, className string) (string, error) {
	return a.pipeline.AnalyzeRegion(ctx, img, rect, className)
}

// Refine summarizes or refines text with the instruction engine
func (a *Analyzer) Refine(ctx context.Context, req refine.Request) (types.RefineResult, error) {
	return a.refiner.Refine(ctx, req)
}

// Profiles returns a copy of the class profile table
func (a *Analyzer) Profiles() map[string]profile.Profile {
	return a.registry.All()
}

// Status reports which engines are present
func (a *Analyzer) Status() Status {
	return Status{
		Version:  Version,
		Detector: a.engines.Detector != nil,
		Vision:   a.engines.Vision != nil,
		Text:     a.engines.Text != nil,
		Profiles: a.registry.Len(),
	}
}
