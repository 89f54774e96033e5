package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/your-org/neurovision/internal/models"
	"github.com/your-org/neurovision/internal/observability"
	"github.com/your-org/neurovision/internal/session"
	"github.com/your-org/neurovision/internal/storage"
	"github.com/your-org/neurovision/internal/vision"
)

var (
	// ErrInvalidInput means the payload carried neither an image nor
	// pre-extracted landmarks.
	ErrInvalidInput = errors.New("no image or landmarks provided")
	// ErrDetectorUnavailable means a raw image was submitted but no external
	// detector is configured.
	ErrDetectorUnavailable = errors.New("landmark detector not configured")
)

const durableTimeout = 5 * time.Second

// Pipeline bridges raw ingest payloads and the session store. Once a session
// resolves, durable-store failures never surface to the caller.
type Pipeline struct {
	sessions *session.Store

	// All three collaborators are optional; nil disables the concern.
	durable   storage.DurableStore
	detector  vision.Detector
	snapshots *storage.MinIOStore
}

func NewPipeline(sessions *session.Store, durable storage.DurableStore, detector vision.Detector, snapshots *storage.MinIOStore) *Pipeline {
	return &Pipeline{
		sessions:  sessions,
		durable:   durable,
		detector:  detector,
		snapshots: snapshots,
	}
}

// Metrics records one frame's metric sample for the session. The sample goes
// into the durable metrics log and, opportunistically, under the session
// document; both writes are independent and best-effort.
func (p *Pipeline) Metrics(ctx context.Context, sessionID string, metrics map[string]float64, source string) (*models.MetricSample, error) {
	if _, err := p.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	sample := models.MetricSample{
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Metrics:   metrics,
	}

	if p.durable != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), durableTimeout)
			defer cancel()
			if err := p.durable.Insert(ctx, storage.MetricsCollection, sample); err != nil {
				observability.PersistenceErrors.WithLabelValues("metrics_log").Inc()
				slog.Warn("metrics log insert failed", "session_id", sessionID, "error", err)
			}
		}()
	}
	p.sessions.AppendMetricSample(sample)

	observability.MetricsIngested.Inc()
	return &sample, nil
}

// DetectionInput is one ingest-detection payload: either raw image bytes for
// the external detector, or landmarks already extracted client-side.
type DetectionInput struct {
	Image     []byte
	Landmarks []float64
	Width     int
	Height    int
	Source    string
}

// Detection extracts (or accepts) landmarks for one frame, appends the
// detection record to the session, and returns the full structured result.
func (p *Pipeline) Detection(ctx context.Context, sessionID string, in DetectionInput) (*models.DetectionResult, error) {
	var result *models.DetectionResult

	switch {
	case len(in.Landmarks) > 0:
		result = vision.ResultFromLandmarks(in.Landmarks, in.Width, in.Height, "")
	case len(in.Image) > 0:
		if p.detector == nil {
			return nil, ErrDetectorUnavailable
		}
		r, err := p.detector.Detect(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		result = r
	default:
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	record := models.DetectionRecord{
		SessionID:   sessionID,
		Timestamp:   now,
		Source:      in.Source,
		FaceCount:   result.FaceCount,
		Landmarks:   result.Landmarks,
		FaceAreaPct: result.FaceAreaPct,
	}

	if p.snapshots != nil && len(in.Image) > 0 {
		record.SnapshotKey = p.storeSnapshot(sessionID, now, in.Image)
	}

	if _, err := p.sessions.AppendDetection(ctx, sessionID, record); err != nil {
		return nil, err
	}

	return result, nil
}

// storeSnapshot uploads the raw frame off the request path and returns the
// deterministic object key the record will carry. A failed upload leaves a
// dangling key, which readers treat as absent.
func (p *Pipeline) storeSnapshot(sessionID string, ts time.Time, image []byte) string {
	key := storage.SnapshotKey(sessionID, ts)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), durableTimeout)
		defer cancel()
		if err := p.snapshots.PutSnapshot(ctx, key, image); err != nil {
			observability.PersistenceErrors.WithLabelValues("snapshot").Inc()
			slog.Warn("snapshot upload failed", "session_id", sessionID, "error", err)
		}
	}()
	return key
}
