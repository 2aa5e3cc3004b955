// Package llamacpp adapts OpenAI-compatible inference servers (llama.cpp,
// vLLM) to the vision and text engine contracts.
package llamacpp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/menta2k/scene-analyzer/pkg/client"
)

// DefaultTimeout bounds a call whose context carries no deadline
const DefaultTimeout = 300 * time.Second

// go-openai omits a zero temperature, so greedy decoding is requested with
// the smallest positive value instead
const greedyTemperature = math.SmallestNonzeroFloat32

// Client wraps an OpenAI-compatible chat completion endpoint
type Client struct {
	client *openai.Client
}

// NewClient creates a client for serverURL. apiKey may be empty for local
// servers.
func NewClient(serverURL, apiKey string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		return nil, fmt.Errorf("invalid URL: %q", serverURL)
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimSuffix(strings.TrimSuffix(serverURL, "/"), "/v1") + "/v1"
	config.HTTPClient = &http.Client{Timeout: 5 * time.Minute}

	return &Client{client: openai.NewClientWithConfig(config)}, nil
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
	client *openai.Client
	model  string
}

// Generate sends the prompt and the crop as a data URI in one request
func (v *VisionEngine) Generate(ctx context.Context, in client.VisionInput) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: client.ExpandTaskPrompt(in.Prompt),
		},
	}
	if len(in.Image) > 0 {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(in.Image),
			},
		})
	}

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		Temperature: greedyTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// TextEngine implements client.TextEngine
type TextEngine struct {
	client *openai.Client
	model  string
}

// Generate streams the reply one delta at a time. When step asks to stop,
// the stream is closed and the text so far is returned without error.
func (t *TextEngine) Generate(ctx context.Context, messages []client.Message, opts client.GenerateOptions, step client.StepFunc) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	req := openai.ChatCompletionRequest{
		Model:     t.model,
		Messages:  chatMessages,
		Stream:    true,
		MaxTokens: opts.MaxTokens,
	}
	if opts.Deterministic {
		req.Temperature = greedyTemperature
	}

	stream, err := t.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("stream request failed: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stream receive failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if step != nil && !step(chunk) {
			break
		}
	}
	return sb.String(), nil
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
