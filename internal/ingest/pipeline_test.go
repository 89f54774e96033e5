package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/your-org/neurovision/internal/models"
	"github.com/your-org/neurovision/internal/session"
	"github.com/your-org/neurovision/internal/storage"
)

type fakeDurable struct {
	mu      sync.Mutex
	inserts map[string][]any
	failAll bool
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{inserts: make(map[string][]any)}
}

func (f *fakeDurable) Upsert(ctx context.Context, collection, key string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("durable store down")
	}
	return nil
}

func (f *fakeDurable) Append(ctx context.Context, collection, key, arrayField string, item any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("durable store down")
	}
	return nil
}

func (f *fakeDurable) Find(ctx context.Context, collection, key string) (map[string]any, error) {
	return nil, nil
}

func (f *fakeDurable) Insert(ctx context.Context, collection string, doc any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("durable store down")
	}
	f.inserts[collection] = append(f.inserts[collection], doc)
	return nil
}

func (f *fakeDurable) FindAll(ctx context.Context, collection, sessionID string) ([]map[string]any, error) {
	return nil, nil
}

func (f *fakeDurable) Ping(ctx context.Context) error { return nil }

func (f *fakeDurable) insertCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts[collection])
}

type stubDetector struct {
	result *models.DetectionResult
	err    error
}

func (d *stubDetector) Detect(ctx context.Context, image []byte) (*models.DetectionResult, error) {
	return d.result, d.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestMetricsUnknownSession(t *testing.T) {
	p := NewPipeline(session.NewStore(nil), nil, nil, nil)

	_, err := p.Metrics(context.Background(), "nope", map[string]float64{"attention": 50}, "")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMetricsRecordsSample(t *testing.T) {
	durable := newFakeDurable()
	sessions := session.NewStore(durable)
	p := NewPipeline(sessions, durable, nil, nil)

	s, _ := sessions.Start(context.Background(), nil)

	sample, err := p.Metrics(context.Background(), s.ID, map[string]float64{"attention": 72.5}, "1.2.3.4")
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if sample.SessionID != s.ID {
		t.Fatalf("sample session = %q, want %q", sample.SessionID, s.ID)
	}
	if sample.Metrics["attention"] != 72.5 {
		t.Fatalf("sample metrics = %v", sample.Metrics)
	}
	if sample.Timestamp.IsZero() {
		t.Fatal("sample must carry a timestamp")
	}

	waitFor(t, func() bool { return durable.insertCount(storage.MetricsCollection) == 1 })
}

func TestMetricsDurableFailureStillAcks(t *testing.T) {
	durable := newFakeDurable()
	sessions := session.NewStore(durable)
	s, _ := sessions.Start(context.Background(), nil)

	durable.mu.Lock()
	durable.failAll = true
	durable.mu.Unlock()

	p := NewPipeline(sessions, durable, nil, nil)
	if _, err := p.Metrics(context.Background(), s.ID, map[string]float64{"attention": 50}, ""); err != nil {
		t.Fatalf("Metrics with failing durable store: %v", err)
	}
}

func TestDetectionFromLandmarks(t *testing.T) {
	sessions := session.NewStore(nil)
	p := NewPipeline(sessions, nil, nil, nil)
	s, _ := sessions.Start(context.Background(), nil)

	result, err := p.Detection(context.Background(), s.ID, DetectionInput{
		Landmarks: []float64{0.2, 0.2, 0.8, 0.8},
		Width:     640,
		Height:    480,
	})
	if err != nil {
		t.Fatalf("Detection: %v", err)
	}
	if result.FaceCount != 1 {
		t.Fatalf("face_count = %d, want 1", result.FaceCount)
	}

	got, _ := sessions.Get(context.Background(), s.ID)
	if got.FramesProcessed != 1 {
		t.Fatalf("frames_processed = %d, want 1", got.FramesProcessed)
	}
	if len(got.Detections) != 1 || got.Detections[0].FaceCount != 1 {
		t.Fatalf("detections = %v", got.Detections)
	}
}

func TestDetectionFromImage(t *testing.T) {
	sessions := session.NewStore(nil)
	detector := &stubDetector{result: &models.DetectionResult{
		FaceCount:   1,
		Landmarks:   []float64{0.1, 0.1, 0.5, 0.5},
		FaceAreaPct: 16,
	}}
	p := NewPipeline(sessions, nil, detector, nil)
	s, _ := sessions.Start(context.Background(), nil)

	result, err := p.Detection(context.Background(), s.ID, DetectionInput{Image: []byte("jpegbytes")})
	if err != nil {
		t.Fatalf("Detection: %v", err)
	}
	if result.FaceAreaPct != 16 {
		t.Fatalf("face_area_pct = %v", result.FaceAreaPct)
	}
}

func TestDetectionWithoutDetector(t *testing.T) {
	sessions := session.NewStore(nil)
	p := NewPipeline(sessions, nil, nil, nil)
	s, _ := sessions.Start(context.Background(), nil)

	_, err := p.Detection(context.Background(), s.ID, DetectionInput{Image: []byte("jpegbytes")})
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
	}
}

func TestDetectionEmptyInput(t *testing.T) {
	sessions := session.NewStore(nil)
	p := NewPipeline(sessions, nil, nil, nil)
	s, _ := sessions.Start(context.Background(), nil)

	_, err := p.Detection(context.Background(), s.ID, DetectionInput{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDetectionUnknownSession(t *testing.T) {
	p := NewPipeline(session.NewStore(nil), nil, nil, nil)

	_, err := p.Detection(context.Background(), "nope", DetectionInput{Landmarks: []float64{0.1, 0.1}})
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDetectionDetectorError(t *testing.T) {
	sessions := session.NewStore(nil)
	detector := &stubDetector{err: errors.New("detector timed out")}
	p := NewPipeline(sessions, nil, detector, nil)
	s, _ := sessions.Start(context.Background(), nil)

	_, err := p.Detection(context.Background(), s.ID, DetectionInput{Image: []byte("jpegbytes")})
	if err == nil || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("expected the detector's error, got %v", err)
	}

	// A failed extraction never reaches the session.
	got, _ := sessions.Get(context.Background(), s.ID)
	if got.FramesProcessed != 0 {
		t.Fatalf("frames_processed = %d, want 0", got.FramesProcessed)
	}
}
