package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/scene-analyzer/internal/config"
	"github.com/menta2k/scene-analyzer/internal/logging"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

func TestParseRegion(t *testing.T) {
	got, err := parseRegion("10, 20.5,30,40")
	if err != nil {
		t.Fatalf("parseRegion failed: %v", err)
	}
	if got != (types.Rect{X: 10, Y: 20.5, Width: 30, Height: 40}) {
		t.Errorf("rect = %+v", got)
	}
	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "1,2,3,4,5"} {
		if _, err := parseRegion(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestBuildEngines(t *testing.T) {
	for _, backend := range []string{config.BackendOllama, config.BackendLlamaCpp} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Default().Engines
			cfg.Backend = backend
			engines, err := buildEngines(cfg)
			if err != nil {
				t.Fatalf("buildEngines failed: %v", err)
			}
			if engines.Detector == nil || engines.Vision == nil || engines.Text == nil {
				t.Errorf("expected all engines, got %+v", engines)
			}
		})
	}

	cfg := config.Default().Engines
	cfg.DetectorURL, cfg.TextURL = "", ""
	engines, err := buildEngines(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if engines.Detector != nil || engines.Text != nil || engines.Vision == nil {
		t.Errorf("only the vision engine should be built: %+v", engines)
	}

	cfg.Backend = "onnx"
	if _, err := buildEngines(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewAnalyzerWithProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	table := "forklift:\n  color: \"#FFAA00\"\n  task: vqa\n  prompt: \"Which brand is this forklift?\"\n  category: Vehicles\n  analyzable: true\n"
	if err := os.WriteFile(path, []byte(table), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.ProfilesPath = path
	a, err := newAnalyzer(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("newAnalyzer failed: %v", err)
	}
	if st := a.Status(); st.Profiles != 1 || !st.Detector {
		t.Errorf("unexpected status %+v", st)
	}

	cfg.ProfilesPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := newAnalyzer(cfg, logging.Discard()); err == nil {
		t.Error("expected error for missing profile table")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCENE_TEXT_MODEL", "phi3")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Engines.TextModel != "phi3" {
		t.Errorf("env override not applied: %q", cfg.Engines.TextModel)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
