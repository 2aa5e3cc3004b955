// Package yolo is a detector engine backed by an HTTP inference service
// running a YOLO model.
package yolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/scene-analyzer/pkg/processing"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

// DefaultTimeout bounds a call whose context carries no deadline
const DefaultTimeout = 60 * time.Second

// Detector posts images to the inference service
type Detector struct {
	inferenceURL string
	httpClient   *http.Client
	processor    *processing.Processor
	quality      int
}

// NewDetector creates a detector for the service at inferenceURL
func NewDetector(inferenceURL string) (*Detector, error) {
	if !strings.HasPrefix(inferenceURL, "http://") && !strings.HasPrefix(inferenceURL, "https://") {
		return nil, fmt.Errorf("invalid inference URL: %q", inferenceURL)
	}
	return &Detector{
		inferenceURL: strings.TrimSuffix(inferenceURL, "/"),
		httpClient:   &http.Client{},
		processor:    processing.NewProcessor(),
		quality:      95,
	}, nil
}

type wireDetection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

// Detect runs inference on img. Boxes are in the pixel space of img.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]types.RawDetection, error) {
	if img == nil {
		return nil, fmt.Errorf("no image provided")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	imageData, err := d.processor.EncodeForModel(img, 0, d.quality)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Detections []wireDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]types.RawDetection, len(result.Detections))
	for i, w := range result.Detections {
		out[i] = types.RawDetection{
			ClassName:  w.Class,
			Confidence: w.Confidence,
			Box:        types.PixelBox{X1: w.X1, Y1: w.Y1, X2: w.X2, Y2: w.Y2},
		}
	}
	return out, nil
}

// CheckHealth reports whether the inference service answers on /health
func (d *Detector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.inferenceURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
