package llamacpp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/menta2k/scene-analyzer/pkg/client"
)

// capturedRequest keeps content raw since it is either a string or parts
type capturedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	MaxToken int    `json:"max_tokens"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, reply string, seen *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(seen)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"1","object":"chat.completion","model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`,
			seen.Model, reply)
	}))
}

func streamServer(t *testing.T, chunks []string, seen *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(seen)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("", ""); err != nil {
		t.Errorf("default URL should be accepted: %v", err)
	}
	if _, err := NewClient("http://localhost:8080/v1/", "key"); err != nil {
		t.Errorf("NewClient failed: %v", err)
	}
	if _, err := NewClient("localhost:8080", ""); err == nil {
		t.Error("expected error for URL without scheme")
	}
}

func TestVisionGenerate(t *testing.T) {
	var seen capturedRequest
	srv := completionServer(t, "A tabby cat sleeping on a sofa.", &seen)
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Vision("qwen2-vl").Generate(context.Background(), client.VisionInput{
		Prompt: "<DETAILED_CAPTION>",
		Image:  []byte{0xff, 0xd8, 0xff, 0xd9},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "A tabby cat sleeping on a sofa." {
		t.Errorf("output = %q", out)
	}
	if seen.Model != "qwen2-vl" || seen.Stream {
		t.Errorf("unexpected request %+v", seen)
	}
	if len(seen.Messages) != 1 {
		t.Fatalf("got %d messages", len(seen.Messages))
	}
	body := string(seen.Messages[0].Content)
	if !strings.Contains(body, "Describe in detail what is shown in the image.") {
		t.Errorf("task marker was not expanded: %s", body)
	}
	if !strings.Contains(body, "data:image/jpeg;base64,/9j/2Q==") {
		t.Errorf("image part missing: %s", body)
	}
}

func TestTextGenerate(t *testing.T) {
	var seen capturedRequest
	srv := streamServer(t, []string{"Golden", " Retriever"}, &seen)
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	var steps []string
	out, err := c.Text("llama3").Generate(context.Background(),
		[]client.Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "breed?"}},
		client.GenerateOptions{MaxTokens: 256, Deterministic: true},
		func(tok string) bool {
			steps = append(steps, tok)
			return true
		})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "Golden Retriever" {
		t.Errorf("output = %q", out)
	}
	if len(steps) != 2 {
		t.Errorf("step called %d times", len(steps))
	}
	if !seen.Stream || seen.MaxToken != 256 || len(seen.Messages) != 2 {
		t.Errorf("unexpected request %+v", seen)
	}
}

func TestTextGenerateStopsOnStep(t *testing.T) {
	var seen capturedRequest
	srv := streamServer(t, []string{"a", "b", "c", "d"}, &seen)
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	out, err := c.Text("llama3").Generate(context.Background(), []client.Message{{Role: "user", Content: "x"}},
		client.GenerateOptions{}, func(tok string) bool { return tok != "b" })
	if err != nil {
		t.Fatalf("stopping must not be an error: %v", err)
	}
	if out != "ab" {
		t.Errorf("partial output = %q", out)
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"model crashed","type":"server_error"}}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	if _, err := c.Vision("m").Generate(context.Background(), client.VisionInput{Prompt: "<VQA>what"}); err == nil {
		t.Error("expected vision error")
	}
	if _, err := c.Text("m").Generate(context.Background(), nil, client.GenerateOptions{}, nil); err == nil {
		t.Error("expected text error")
	}
}
