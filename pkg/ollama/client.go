// Package ollama adapts an Ollama server to the vision and text engine
// contracts.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/scene-analyzer/pkg/client"
)

// DefaultTimeout bounds a call whose context carries no deadline
const DefaultTimeout = 300 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}

	// Drop any path like /api/chat, the SDK adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

// Vision returns a vision engine backed by model
func (c *Client) Vision(model string) *VisionEngine {
	return &VisionEngine{client: c.client, model: model}
}

// Text returns a text engine backed by model
func (c *Client) Text(model string) *TextEngine {
	return &TextEngine{client: c.client, model: model}
}

// VisionEngine implements client.VisionEngine
type VisionEngine struct {
	client *api.Client
	model  string
}

// Generate sends the crop and the prompt in one non-streaming chat turn
func (v *VisionEngine) Generate(ctx context.Context, in client.VisionInput) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	streamFalse := false
	req := &api.ChatRequest{
		Model: v.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: client.ExpandTaskPrompt(in.Prompt),
				Images:  []api.ImageData{api.ImageData(in.Image)},
			},
		},
		Stream:  &streamFalse,
		Options: map[string]any{"temperature": 0},
	}

	var sb strings.Builder
	err := v.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %v", err)
	}
	return sb.String(), nil
}

// TextEngine implements client.TextEngine
type TextEngine struct {
	client *api.Client
	model  string
}

// Generate streams the reply, feeding every chunk to step. When step asks
// to stop, the text produced so far is returned without error.
func (t *TextEngine) Generate(ctx context.Context, messages []client.Message, opts client.GenerateOptions, step client.StepFunc) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	options := map[string]any{}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if opts.Deterministic {
		options["temperature"] = 0
	}

	streamTrue := true
	req := &api.ChatRequest{
		Model:    t.model,
		Messages: msgs,
		Stream:   &streamTrue,
		Options:  options,
	}

	var sb strings.Builder
	err := t.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		chunk := resp.Message.Content
		sb.WriteString(chunk)
		if step != nil && chunk != "" && !step(chunk) {
			return client.ErrStopped
		}
		return nil
	})
	if err != nil && !errors.Is(err, client.ErrStopped) {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return sb.String(), nil
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
