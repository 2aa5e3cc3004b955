// Package describer runs the vision-language engine on a cropped region and
// always hands back text: every failure is turned into a diagnostic string.
package describer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"strings"

	"github.com/menta2k/scene-analyzer/internal/logging"
	"github.com/menta2k/scene-analyzer/pkg/client"
	"github.com/menta2k/scene-analyzer/pkg/processing"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

// NoResult is the answer extracted from an empty result
const NoResult = "No analysis result"

// Result maps a task marker to generated text
type Result map[string]string

// Stage names one step of a describe call
type Stage int

const (
	StageValidate Stage = iota
	StageInputs
	StageGenerate
	StageDecode
)

// StageError records which step of a describe call failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Diagnostic() }

func (e *StageError) Unwrap() error { return e.Err }

// Diagnostic is the text stored in the result when the stage fails
func (e *StageError) Diagnostic() string {
	switch e.Stage {
	case StageValidate:
		return "Invalid image"
	case StageInputs:
		return fmt.Sprintf("Processor error: %v", e.Err)
	case StageGenerate:
		return fmt.Sprintf("Generation error: %v", e.Err)
	case StageDecode:
		if errors.Is(e.Err, errEmptyOutput) {
			return "No response generated"
		}
		return fmt.Sprintf("Decoding error: %v", e.Err)
	default:
		return fmt.Sprintf("Analysis error: %v", e.Err)
	}
}

var errEmptyOutput = errors.New("empty output")

// Config holds describer settings
type Config struct {
	SendSize    int // max long side of the image sent to the engine, 0 = original
	SendQuality int // JPEG quality of the image sent to the engine
}

// DefaultConfig returns the default describer configuration
func DefaultConfig() Config {
	return Config{SendSize: 0, SendQuality: 90}
}

// Describer produces descriptions of image regions
type Describer struct {
	engine    client.VisionEngine
	post      client.CaptionPostProcessor
	processor *processing.Processor
	config    Config
	logger    *slog.Logger
}

// New creates a describer. A nil post-processor selects CaptionCleaner.
func New(engine client.VisionEngine, post client.CaptionPostProcessor, cfg Config, logger *slog.Logger) *Describer {
	if post == nil {
		post = CaptionCleaner{}
	}
	if cfg.SendQuality <= 0 {
		cfg.SendQuality = DefaultConfig().SendQuality
	}
	return &Describer{
		engine:    engine,
		post:      post,
		processor: processing.NewProcessor(),
		config:    cfg,
		logger:    logging.Component(logger, "describer"),
	}
}

// BuildPrompt builds the engine prompt. Caption tasks use the marker alone;
// mixing text into a caption prompt breaks the engine.
func BuildPrompt(kind types.TaskKind, hint string) string {
	if kind == types.Caption {
		return kind.Marker()
	}
	return kind.Marker() + hint
}

// Describe runs the engine on img. It never fails: a failing step yields a
// result holding the diagnostic under the task marker.
func (d *Describer) Describe(ctx context.Context, img image.Image, kind types.TaskKind, hint string) Result {
	marker := kind.Marker()
	prompt := BuildPrompt(kind, hint)

	result, err := d.describe(ctx, img, kind, prompt)
	if err != nil {
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			stageErr = &StageError{Stage: -1, Err: err}
		}
		d.logger.Warn("region analysis failed", "task", marker, "error", err)
		return Result{marker: stageErr.Diagnostic()}
	}
	return result
}

func (d *Describer) describe(ctx context.Context, img image.Image, kind types.TaskKind, prompt string) (Result, error) {
	marker := kind.Marker()

	rgb, err := validate(img)
	if err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}
	w, h := rgb.Bounds().Dx(), rgb.Bounds().Dy()

	in, err := d.buildInputs(rgb, prompt)
	if err != nil {
		return nil, &StageError{Stage: StageInputs, Err: err}
	}

	d.logger.Debug("running vision engine", "prompt", prompt, "width", w, "height", h)
	raw, err := d.engine.Generate(ctx, in)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, Err: err}
	}

	text, err := decode(raw)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	if kind != types.Caption {
		return Result{marker: text}, nil
	}
	caption, err := d.post.PostProcess(text, marker, w, h)
	if err != nil {
		d.logger.Warn("caption post-processing failed", "error", err)
		return Result{marker: text}, nil
	}
	return Result{marker: caption}, nil
}

func validate(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image has no area: %dx%d", b.Dx(), b.Dy())
	}
	return processing.ToRGB(img), nil
}

func (d *Describer) buildInputs(img image.Image, prompt string) (client.VisionInput, error) {
	if d.engine == nil {
		return client.VisionInput{}, errors.New("vision engine not configured")
	}
	data, err := d.processor.EncodeForModel(img, d.config.SendSize, d.config.SendQuality)
	if err != nil {
		return client.VisionInput{}, err
	}
	return client.VisionInput{
		Prompt: prompt,
		Image:  data,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

var specialTokens = strings.NewReplacer("<s>", "", "</s>", "", "<pad>", "")

// decode strips the engine's special tokens from raw output
func decode(raw string) (string, error) {
	text := strings.TrimSpace(specialTokens.Replace(raw))
	if text == "" {
		return "", errEmptyOutput
	}
	return text, nil
}

// Extract picks the primary answer: the value under marker, else the first
// value by key order, else NoResult
func Extract(r Result, marker string) string {
	if v, ok := r[marker]; ok {
		return v
	}
	if len(r) == 0 {
		return NoResult
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return r[keys[0]]
}
