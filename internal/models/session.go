package models

import (
	"time"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is one bounded interval of client activity. The in-memory store is
// authoritative; the durable mirror is best-effort and only consulted on a
// cache miss.
type Session struct {
	ID              string            `json:"session_id" bson:"session_id"`
	Status          SessionStatus     `json:"status" bson:"status"`
	StartTime       time.Time         `json:"start_time" bson:"start_time"`
	EndTime         *time.Time        `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Metadata        map[string]any    `json:"metadata" bson:"metadata"`
	FramesProcessed int               `json:"frames_processed" bson:"frames_processed"`
	Detections      []DetectionRecord `json:"detections,omitempty" bson:"detections,omitempty"`
	LastActivity    time.Time         `json:"last_activity" bson:"last_activity"`
}

// MetricSample is one frame's worth of externally computed facial metrics.
// Immutable once recorded.
type MetricSample struct {
	SessionID string             `json:"session_id" bson:"session_id"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
	Source    string             `json:"source,omitempty" bson:"source,omitempty"`
	Metrics   map[string]float64 `json:"metrics" bson:"metrics"`
}

// DetectionRecord is the stored outcome of one detection ingest.
type DetectionRecord struct {
	SessionID string    `json:"session_id" bson:"session_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Source    string    `json:"source,omitempty" bson:"source,omitempty"`
	FaceCount int       `json:"face_count" bson:"face_count"`
	// Landmarks is a flat [x0,y0,x1,y1,...] slice of normalized coordinates.
	Landmarks   []float64 `json:"landmarks,omitempty" bson:"landmarks,omitempty"`
	FaceAreaPct float64   `json:"face_area_pct" bson:"face_area_pct"`
	SnapshotKey string    `json:"snapshot_key,omitempty" bson:"snapshot_key,omitempty"`
}

// DetectionResult is what an ingest-detection call returns to the client.
type DetectionResult struct {
	FaceCount   int       `json:"face_count"`
	Landmarks   []float64 `json:"landmarks,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	FaceAreaPct float64   `json:"face_area_pct"`
	Message     string    `json:"message,omitempty"`
}
