package vision

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/your-org/neurovision/internal/config"
)

func TestFaceAreaPct(t *testing.T) {
	// A bounding box from (0.2,0.3) to (0.7,0.8): 0.5 * 0.5 = 25% of the frame.
	landmarks := []float64{0.2, 0.3, 0.7, 0.8, 0.45, 0.55}
	got := FaceAreaPct(landmarks)
	if math.Abs(got-25) > 1e-9 {
		t.Fatalf("FaceAreaPct = %v, want 25", got)
	}
}

func TestFaceAreaPctDegenerate(t *testing.T) {
	if got := FaceAreaPct(nil); got != 0 {
		t.Fatalf("FaceAreaPct(nil) = %v, want 0", got)
	}
	if got := FaceAreaPct([]float64{0.5}); got != 0 {
		t.Fatalf("FaceAreaPct(single coord) = %v, want 0", got)
	}
	// A single point has zero area.
	if got := FaceAreaPct([]float64{0.5, 0.5}); got != 0 {
		t.Fatalf("FaceAreaPct(point) = %v, want 0", got)
	}
}

func TestResultFromLandmarksNoFace(t *testing.T) {
	r := ResultFromLandmarks(nil, 640, 480, "")
	if r.FaceCount != 0 {
		t.Fatalf("face_count = %d, want 0", r.FaceCount)
	}
	if r.Message != "no_face" {
		t.Fatalf("message = %q, want no_face", r.Message)
	}
}

func TestResultFromLandmarks(t *testing.T) {
	r := ResultFromLandmarks([]float64{0.1, 0.1, 0.9, 0.9}, 640, 480, "")
	if r.FaceCount != 1 {
		t.Fatalf("face_count = %d, want 1", r.FaceCount)
	}
	if r.Width != 640 || r.Height != 480 {
		t.Fatalf("dimensions = %dx%d", r.Width, r.Height)
	}
	if math.Abs(r.FaceAreaPct-64) > 1e-9 {
		t.Fatalf("face_area_pct = %v, want 64", r.FaceAreaPct)
	}
}

func TestHTTPDetectorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing image part: %v", err)
		} else {
			file.Close()
		}
		w.Write([]byte(`{"landmarks":[0.1,0.1,0.5,0.5],"width":640,"height":480}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(config.VisionConfig{DetectorURL: srv.URL, Timeout: 2 * time.Second})

	r, err := d.Detect(context.Background(), []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if r.FaceCount != 1 || len(r.Landmarks) != 4 {
		t.Fatalf("result = %+v", r)
	}
}

func TestHTTPDetectorNoFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"landmarks":null,"message":"no_face"}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(config.VisionConfig{DetectorURL: srv.URL, Timeout: 2 * time.Second})

	r, err := d.Detect(context.Background(), []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("a zero-face frame is a valid result: %v", err)
	}
	if r.FaceCount != 0 || r.Message != "no_face" {
		t.Fatalf("result = %+v", r)
	}
}

func TestHTTPDetectorErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"corrupt image"}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(config.VisionConfig{DetectorURL: srv.URL, Timeout: 2 * time.Second})

	_, err := d.Detect(context.Background(), []byte("jpegbytes"))
	if err == nil || !strings.Contains(err.Error(), "corrupt image") {
		t.Fatalf("expected the detector's error, got %v", err)
	}
}

func TestHTTPDetectorNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	d := NewHTTPDetector(config.VisionConfig{DetectorURL: srv.URL, Timeout: 2 * time.Second})

	_, err := d.Detect(context.Background(), []byte("jpegbytes"))
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status error, got %v", err)
	}
}
