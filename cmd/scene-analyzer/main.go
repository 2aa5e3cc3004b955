package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	sceneanalyzer "github.com/menta2k/scene-analyzer"
	"github.com/menta2k/scene-analyzer/internal/config"
	"github.com/menta2k/scene-analyzer/internal/logging"
	"github.com/menta2k/scene-analyzer/internal/utils"
	"github.com/menta2k/scene-analyzer/pkg/describer"
	"github.com/menta2k/scene-analyzer/pkg/detection"
	"github.com/menta2k/scene-analyzer/pkg/processing"
	"github.com/menta2k/scene-analyzer/pkg/profile"
	"github.com/menta2k/scene-analyzer/pkg/refine"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

func main() {
	var in, op, outDir, ext string
	var configPath, profilesPath, backend string
	var region, objectType, text, mode, category string
	var deep, debug bool
	var quality int

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&op, "op", "detect", "operation: detect|analyze|region|refine|profiles")
	flag.BoolVar(&deep, "deep", false, "run deep analysis on confident detections (detect only)")
	flag.StringVar(&region, "region", "", "region x,y,w,h in percent of the image (region op)")
	flag.StringVar(&objectType, "type", "", "object class for region analysis or refinement")
	flag.StringVar(&text, "text", "", "text to summarize or refine (refine op)")
	flag.StringVar(&mode, "mode", "summarize", "refine mode: summarize|refine")
	flag.StringVar(&category, "category", "", "object category hint for refinement")

	flag.StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+" when present)")
	flag.StringVar(&profilesPath, "profiles", "", "YAML class profile table (default built-in)")
	flag.StringVar(&backend, "backend", "", "vision/text backend: ollama or llamacpp (overrides config)")

	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.BoolVar(&debug, "debug", false, "write an overlay image with detection boxes")
	flag.StringVar(&ext, "ext", "png", "overlay format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 90, "overlay quality for jpg/webp (1-100)")

	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if backend != "" {
		cfg.Engines.Backend = backend
	}
	if profilesPath != "" {
		cfg.ProfilesPath = profilesPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	runID := uuid.New().String()
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatal(err)
	}
	logger = logger.With("run", runID)

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	logger.Info("starting", "op", op, "status", analyzer.Status())

	ctx := context.Background()
	processor := processing.NewProcessor()

	var result any
	switch op {
	case "detect", "analyze":
		img := mustLoad(processor, in)
		detections, err := analyzer.DetectAndAnalyze(ctx, img, deep || op == "analyze")
		if err != nil {
			log.Fatal(err)
		}
		for _, d := range detections {
			logger.Info("detection", "class", d.ClassName, "confidence", d.Confidence, "category", d.Category, "analysis", d.Analysis)
		}
		if debug {
			writeOverlay(processor, logger, img, detections, in, outDir, runID, ext, quality)
		}
		result = detections

	case "region":
		img := mustLoad(processor, in)
		rect, err := parseRegion(region)
		if err != nil {
			log.Fatal(err)
		}
		analysis, err := analyzer.AnalyzeRegion(ctx, img, rect, objectType)
		if err != nil {
			log.Fatal(err)
		}
		result = map[string]string{"type": objectType, "analysis": analysis}

	case "refine":
		res, err := analyzer.Refine(ctx, refine.Request{
			Text:       text,
			Mode:       types.RefineMode(mode),
			Category:   category,
			ObjectType: objectType,
		})
		if err != nil {
			log.Fatal(err)
		}
		result = res

	case "profiles":
		result = analyzer.Profiles()

	default:
		log.Fatalf("usage: %s -op detect|analyze|region|refine|profiles [-in input.jpg|URL] [-deep] [-region x,y,w,h -type car] [-text ... -mode summarize|refine] [-debug]", filepath.Base(os.Args[0]))
	}

	js, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(js))

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("%s_%s.json", op, runID))
	if err := os.WriteFile(outPath, js, 0o644); err != nil {
		logger.Warn("result save failed", "path", outPath, "error", err)
	} else {
		logger.Info("wrote result", "path", outPath)
	}
}

// loadConfig reads path, or the default config file when present, and then
// applies environment overrides
func loadConfig(path string) (*config.Config, error) {
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAnalyzer(cfg *config.Config, logger *slog.Logger) (*sceneanalyzer.Analyzer, error) {
	engines, err := buildEngines(cfg.Engines)
	if err != nil {
		return nil, err
	}

	opts := sceneanalyzer.Options{
		Gate: detection.GateConfig{
			Threshold:   cfg.Pipeline.Threshold,
			Padding:     cfg.Pipeline.Padding,
			MinCropSize: cfg.Pipeline.MinCropSize,
		},
		Describer: describer.Config{
			SendSize:    cfg.Pipeline.SendSize,
			SendQuality: cfg.Pipeline.SendQuality,
		},
		Refine: refine.Config{
			MaxTokens:    cfg.Refine.MaxTokens,
			SystemPrompt: cfg.Refine.SystemPrompt,
		},
		Logger: logger,
	}

	if cfg.ProfilesPath != "" {
		f, err := os.Open(cfg.ProfilesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open profiles: %w", err)
		}
		defer f.Close()
		if opts.Registry, err = profile.Load(f); err != nil {
			return nil, err
		}
	}

	return sceneanalyzer.New(engines, opts)
}

func mustLoad(processor *processing.Processor, in string) image.Image {
	if in == "" {
		log.Fatal("-in is required for this operation")
	}
	if !strings.HasPrefix(in, "http") && !utils.IsImageFile(in) {
		log.Printf("warning: %s does not look like an image file", in)
	}
	img, err := processor.LoadImageSmart(in)
	if err != nil {
		log.Fatal(err)
	}
	return img
}

func writeOverlay(processor *processing.Processor, logger *slog.Logger, img image.Image, detections []types.Detection, in, outDir, runID, ext string, quality int) {
	if err := utils.EnsureDir(outDir); err != nil {
		logger.Warn("overlay dir failed", "error", err)
		return
	}
	name := utils.SanitizeFilename(filepath.Base(in))
	path := utils.GenerateOutputFilename(name, outDir, runID[:8]+"_", "_overlay", strings.ToLower(ext))

	overlay := processor.CreateDetectionOverlay(img, detections)
	if err := processor.SaveImage(overlay, path, ext, quality, false); err != nil {
		logger.Warn("overlay save failed", "path", path, "error", err)
		return
	}
	logger.Info("wrote overlay", "path", path)
}
