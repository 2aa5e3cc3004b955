package main

import (
	"fmt"
	"strconv"
	"strings"

	sceneanalyzer "github.com/menta2k/scene-analyzer"
	"github.com/menta2k/scene-analyzer/internal/config"
	"github.com/menta2k/scene-analyzer/pkg/llamacpp"
	"github.com/menta2k/scene-analyzer/pkg/ollama"
	"github.com/menta2k/scene-analyzer/pkg/types"
	"github.com/menta2k/scene-analyzer/pkg/yolo"
)

// buildEngines creates every engine that has a URL configured
func buildEngines(cfg config.EnginesConfig) (sceneanalyzer.Engines, error) {
	var engines sceneanalyzer.Engines

	if cfg.DetectorURL != "" {
		d, err := yolo.NewDetector(cfg.DetectorURL)
		if err != nil {
			return engines, fmt.Errorf("failed to create detector: %w", err)
		}
		engines.Detector = d
	}

	switch cfg.Backend {
	case config.BackendOllama:
		if cfg.VisionURL != "" {
			c, err := ollama.NewClient(cfg.VisionURL)
			if err != nil {
				return engines, fmt.Errorf("failed to create Ollama vision client: %w", err)
			}
			engines.Vision = c.Vision(cfg.VisionModel)
		}
		if cfg.TextURL != "" {
			c, err := ollama.NewClient(cfg.TextURL)
			if err != nil {
				return engines, fmt.Errorf("failed to create Ollama text client: %w", err)
			}
			engines.Text = c.Text(cfg.TextModel)
		}
	case config.BackendLlamaCpp:
		if cfg.VisionURL != "" {
			c, err := llamacpp.NewClient(cfg.VisionURL, cfg.APIKey)
			if err != nil {
				return engines, fmt.Errorf("failed to create llama.cpp vision client: %w", err)
			}
			engines.Vision = c.Vision(cfg.VisionModel)
		}
		if cfg.TextURL != "" {
			c, err := llamacpp.NewClient(cfg.TextURL, cfg.APIKey)
			if err != nil {
				return engines, fmt.Errorf("failed to create llama.cpp text client: %w", err)
			}
			engines.Text = c.Text(cfg.TextModel)
		}
	default:
		return engines, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", cfg.Backend)
	}

	return engines, nil
}

// parseRegion reads "x,y,w,h" in percent of the image
func parseRegion(s string) (types.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.Rect{}, fmt.Errorf("region must be x,y,w,h, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.Rect{}, fmt.Errorf("region value %q: %w", p, err)
		}
		v[i] = f
	}
	return types.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
