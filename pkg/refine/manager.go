// Package refine runs summarize/refine requests against the instruction
// engine. Only the newest request is allowed to finish: older in-flight
// requests notice they were superseded at the next generated token and stop.
package refine

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/menta2k/scene-analyzer/internal/errors"
	"github.com/menta2k/scene-analyzer/internal/logging"
	"github.com/menta2k/scene-analyzer/pkg/client"
	"github.com/menta2k/scene-analyzer/pkg/profile"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

// CancelledText replaces the output of a superseded request
const CancelledText = "[Request cancelled by a newer one]"

// DefaultMaxTokens bounds each generation
const DefaultMaxTokens = 256

// Request is one summarize or refine call
type Request struct {
	Text         string
	Mode         types.RefineMode // empty means summarize
	Category     string           // empty means Misc
	ObjectType   string
	SystemPrompt string // empty means DefaultSystemPrompt
}

// Config holds refinement settings
type Config struct {
	MaxTokens    int
	SystemPrompt string
}

// Manager owns the session counter and the instruction engine handle
type Manager struct {
	engine   client.TextEngine
	registry *profile.Registry
	config   Config
	counter  Counter
	logger   *slog.Logger
}

// NewManager creates a refinement manager
func NewManager(engine client.TextEngine, registry *profile.Registry, cfg Config, logger *slog.Logger) *Manager {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return &Manager{
		engine:   engine,
		registry: registry,
		config:   cfg,
		logger:   logging.Component(logger, "refine"),
	}
}

// Refine runs one request. Starting it supersedes every request still in
// flight; a superseded request returns CancelledText with Cancelled set.
func (m *Manager) Refine(ctx context.Context, req Request) (types.RefineResult, error) {
	if m.engine == nil {
		return types.RefineResult{}, apperrors.New(apperrors.KindEngineUnavailable, "refine", "text engine not loaded")
	}
	if strings.TrimSpace(req.Text) == "" {
		return types.RefineResult{}, apperrors.New(apperrors.KindInput, "refine", "no text provided")
	}

	messages, err := m.buildMessages(req)
	if err != nil {
		return types.RefineResult{}, err
	}

	token := m.counter.Begin()
	log := m.logger.With("session", token.ID())
	log.Debug("refinement started", "mode", req.Mode, "type", req.ObjectType)

	opts := client.GenerateOptions{MaxTokens: m.config.MaxTokens, Deterministic: true}
	text, err := m.engine.Generate(ctx, messages, opts, func(string) bool {
		return !token.Superseded()
	})

	if token.Superseded() {
		log.Info("refinement cancelled by a newer request", "current", m.counter.Current())
		return types.RefineResult{Text: CancelledText, Cancelled: true}, nil
	}
	if err != nil {
		return types.RefineResult{}, apperrors.Wrap(apperrors.KindEngine, "refine", "text generation failed", err)
	}

	return types.RefineResult{Text: strings.TrimSpace(text)}, nil
}

// Session returns the id of the most recently started request
func (m *Manager) Session() uint64 {
	return m.counter.Current()
}

func (m *Manager) buildMessages(req Request) ([]client.Message, error) {
	category := req.Category
	if category == "" {
		category = "Misc"
	}

	var query string
	switch req.Mode {
	case "", types.ModeSummarize:
		query = SummarizeQuery(req.Text)
	case types.ModeRefine:
		query = RefineQuery(req.Text, ResolveHint(m.registry, req.ObjectType, category))
	default:
		return nil, apperrors.Newf(apperrors.KindInput, "refine", "unknown mode %q", req.Mode)
	}

	system := req.SystemPrompt
	if system == "" {
		system = m.config.SystemPrompt
	}
	return []client.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: query},
	}, nil
}
