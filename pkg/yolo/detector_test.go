package yolo

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/menta2k/scene-analyzer/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	return img
}

func TestNewDetector(t *testing.T) {
	if _, err := NewDetector("http://localhost:8000/predict/"); err != nil {
		t.Errorf("NewDetector failed: %v", err)
	}
	if _, err := NewDetector("localhost:8000"); err == nil {
		t.Error("expected error for URL without scheme")
	}
}

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		img, err := jpeg.Decode(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
			t.Errorf("uploaded image is %v", img.Bounds())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[
			{"class":"car","confidence":0.93,"x1":1,"y1":2,"x2":30,"y2":20},
			{"class":"dog","confidence":0.41,"x1":10,"y1":5,"x2":60,"y2":31}]}`))
	}))
	defer srv.Close()

	d, err := NewDetector(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Detect(context.Background(), createTestImage(64, 32))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	want := []types.RawDetection{
		{ClassName: "car", Confidence: 0.93, Box: types.PixelBox{X1: 1, Y1: 2, X2: 30, Y2: 20}},
		{ClassName: "dog", Confidence: 0.41, Box: types.PixelBox{X1: 10, Y1: 5, X2: 60, Y2: 31}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d detections", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("detection %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDetectErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d, _ := NewDetector(srv.URL)
	if _, err := d.Detect(context.Background(), createTestImage(8, 8)); err == nil {
		t.Error("expected error for failing service")
	}
	if _, err := d.Detect(context.Background(), nil); err == nil {
		t.Error("expected error for nil image")
	}
	if err := d.CheckHealth(context.Background()); err == nil {
		t.Error("expected unhealthy service")
	}
}

func TestCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d, _ := NewDetector(srv.URL)
	if err := d.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth failed: %v", err)
	}
}
