package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	apperrors "github.com/menta2k/scene-analyzer/internal/errors"
	"github.com/menta2k/scene-analyzer/internal/logging"
)

// Supported engine backends
const (
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Config holds the application configuration
type Config struct {
	Engines      EnginesConfig  `json:"engines"`
	Pipeline     PipelineConfig `json:"pipeline"`
	Refine       RefineConfig   `json:"refine"`
	Log          LogConfig      `json:"log"`
	ProfilesPath string         `json:"profiles_path,omitempty"`
}

// EnginesConfig selects and locates the inference engines. An empty URL
// leaves the matching engine unconfigured.
type EnginesConfig struct {
	Backend     string `json:"backend"`
	VisionURL   string `json:"vision_url"`
	TextURL     string `json:"text_url"`
	VisionModel string `json:"vision_model"`
	TextModel   string `json:"text_model"`
	DetectorURL string `json:"detector_url"`
	APIKey      string `json:"api_key,omitempty"`
}

// PipelineConfig holds the deep-analysis policy
type PipelineConfig struct {
	Threshold   float64 `json:"threshold"`
	Padding     int     `json:"padding"`
	MinCropSize int     `json:"min_crop_size"`
	SendSize    int     `json:"send_size"`
	SendQuality int     `json:"send_quality"`
}

// RefineConfig holds text refinement settings
type RefineConfig struct {
	MaxTokens    int    `json:"max_tokens"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Engines: EnginesConfig{
			Backend:     BackendOllama,
			VisionURL:   "http://localhost:11434",
			TextURL:     "http://localhost:11434",
			VisionModel: "llava:7b",
			TextModel:   "qwen2.5:1.5b-instruct",
			DetectorURL: "http://localhost:8000/predict",
		},
		Pipeline: PipelineConfig{
			Threshold:   0.85,
			Padding:     40,
			MinCropSize: 5,
			SendSize:    0,
			SendQuality: 90,
		},
		Refine: RefineConfig{
			MaxTokens: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads envFiles (default .env, a missing file is ignored) and then
// overrides settings from SCENE_* environment variables
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return apperrors.Wrap(apperrors.KindConfig, "config", "failed to load "+f, err)
		}
	}

	strs := map[string]*string{
		"SCENE_BACKEND":       &c.Engines.Backend,
		"SCENE_VISION_URL":    &c.Engines.VisionURL,
		"SCENE_TEXT_URL":      &c.Engines.TextURL,
		"SCENE_VISION_MODEL":  &c.Engines.VisionModel,
		"SCENE_TEXT_MODEL":    &c.Engines.TextModel,
		"SCENE_DETECTOR_URL":  &c.Engines.DetectorURL,
		"SCENE_API_KEY":       &c.Engines.APIKey,
		"SCENE_LOG_LEVEL":     &c.Log.Level,
		"SCENE_LOG_FORMAT":    &c.Log.Format,
		"SCENE_PROFILES_PATH": &c.ProfilesPath,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("SCENE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperrors.Wrap(apperrors.KindConfig, "config", "invalid SCENE_THRESHOLD", err)
		}
		c.Pipeline.Threshold = f
	}
	if v, ok := os.LookupEnv("SCENE_MAX_TOKENS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Wrap(apperrors.KindConfig, "config", "invalid SCENE_MAX_TOKENS", err)
		}
		c.Refine.MaxTokens = n
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	invalid := func(msg string) error {
		return apperrors.New(apperrors.KindConfig, "config", msg)
	}

	if c.Engines.Backend != BackendOllama && c.Engines.Backend != BackendLlamaCpp {
		return invalid(fmt.Sprintf("engines.backend must be %q or %q", BackendOllama, BackendLlamaCpp))
	}

	if c.Pipeline.Threshold < 0 || c.Pipeline.Threshold > 1 {
		return invalid("pipeline.threshold must be between 0 and 1")
	}

	if c.Pipeline.Padding < 0 {
		return invalid("pipeline.padding cannot be negative")
	}

	if c.Pipeline.MinCropSize < 1 {
		return invalid("pipeline.min_crop_size must be positive")
	}

	if c.Pipeline.SendSize < 0 {
		return invalid("pipeline.send_size cannot be negative")
	}

	if c.Pipeline.SendQuality < 1 || c.Pipeline.SendQuality > 100 {
		return invalid("pipeline.send_quality must be between 1 and 100")
	}

	if c.Refine.MaxTokens < 1 {
		return invalid("refine.max_tokens must be positive")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: " + err.Error())
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "scene-analyzer", "config.json")
}
