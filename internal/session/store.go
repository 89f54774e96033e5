package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/neurovision/internal/models"
	"github.com/your-org/neurovision/internal/observability"
	"github.com/your-org/neurovision/internal/storage"
)

// ErrNotFound means the session id resolved neither in the volatile map nor
// in the durable store.
var ErrNotFound = errors.New("session not found")

const mirrorTimeout = 5 * time.Second

// Store owns the authoritative volatile session map. Every mutation is
// mirrored to the durable store fire-and-forget; a mirror failure never rolls
// back or surfaces, it is logged and counted.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	// durable may be nil: the store then behaves as purely volatile.
	durable storage.DurableStore
}

// entry serializes read-modify-write sequences against a single session so
// the frame counter and detection sequence never diverge under concurrent
// ingest.
type entry struct {
	mu sync.Mutex
	s  models.Session
}

func NewStore(durable storage.DurableStore) *Store {
	return &Store{
		entries: make(map[string]*entry),
		durable: durable,
	}
}

// Start creates a new active session and mirrors it durably.
func (st *Store) Start(ctx context.Context, metadata map[string]any) (*models.Session, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	now := time.Now().UTC()
	s := models.Session{
		ID:           uuid.NewString(),
		Status:       models.SessionStatusActive,
		StartTime:    now,
		Metadata:     metadata,
		LastActivity: now,
	}

	st.mu.Lock()
	st.entries[s.ID] = &entry{s: s}
	st.mu.Unlock()

	observability.SessionsStarted.Inc()
	observability.ActiveSessions.Inc()

	st.mirror("start", func(ctx context.Context) error {
		return st.durable.Upsert(ctx, storage.SessionsCollection, s.ID, sessionFields(&s))
	})

	return clone(&s), nil
}

// Get returns the session, rehydrating it from the durable store on a
// volatile miss. Returns ErrNotFound only when both miss.
func (st *Store) Get(ctx context.Context, id string) (*models.Session, error) {
	e, err := st.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	s := clone(&e.s)
	e.mu.Unlock()
	return s, nil
}

// End transitions the session to completed. Ending an already-completed
// session is idempotent: the original end time is preserved.
func (st *Store) End(ctx context.Context, id string) (*models.Session, error) {
	e, err := st.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.s.Status != models.SessionStatusCompleted {
		now := time.Now().UTC()
		e.s.Status = models.SessionStatusCompleted
		e.s.EndTime = &now
		e.s.LastActivity = now
		observability.ActiveSessions.Dec()
	}
	s := clone(&e.s)
	e.mu.Unlock()

	st.mirror("end", func(ctx context.Context) error {
		return st.durable.Upsert(ctx, storage.SessionsCollection, s.ID, map[string]any{
			"status":        s.Status,
			"end_time":      s.EndTime,
			"last_activity": s.LastActivity,
		})
	})

	return s, nil
}

// AppendDetection appends one detection record, keeping the frame counter in
// lockstep, and mirrors the record into the append-only detections log
// independently of the session-document mirror.
func (st *Store) AppendDetection(ctx context.Context, id string, record models.DetectionRecord) (*models.Session, error) {
	e, err := st.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	record.SessionID = id
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	e.mu.Lock()
	e.s.Detections = append(e.s.Detections, record)
	e.s.FramesProcessed++
	e.s.LastActivity = record.Timestamp
	frames := e.s.FramesProcessed
	last := e.s.LastActivity
	s := clone(&e.s)
	e.mu.Unlock()

	observability.FramesProcessed.Inc()

	st.mirror("append_detection", func(ctx context.Context) error {
		return st.durable.Insert(ctx, storage.DetectionsCollection, record)
	})
	st.mirror("session_counters", func(ctx context.Context) error {
		return st.durable.Upsert(ctx, storage.SessionsCollection, id, map[string]any{
			"frames_processed": frames,
			"last_activity":    last,
		})
	})

	return s, nil
}

// AppendMetricSample opportunistically pushes a metric sample under the
// session document for fast aggregation. The canonical copy lives in the
// metrics log collection, written by the ingest pipeline.
func (st *Store) AppendMetricSample(sample models.MetricSample) {
	st.mirror("session_metrics", func(ctx context.Context) error {
		return st.durable.Append(ctx, storage.SessionsCollection, sample.SessionID, "metrics", sample)
	})
}

// resolve finds the session entry, rehydrating from the durable store on a
// volatile miss. Rehydration is idempotent: concurrent misses converge on a
// single entry.
func (st *Store) resolve(ctx context.Context, id string) (*entry, error) {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if ok {
		return e, nil
	}

	if st.durable == nil {
		return nil, ErrNotFound
	}

	doc, err := st.durable.Find(ctx, storage.SessionsCollection, id)
	if err != nil {
		observability.PersistenceErrors.WithLabelValues("rehydrate").Inc()
		slog.Warn("session rehydrate failed", "session_id", id, "error", err)
		return nil, ErrNotFound
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	s := sessionFromDoc(id, doc)

	st.mu.Lock()
	defer st.mu.Unlock()
	if existing, ok := st.entries[id]; ok {
		// Lost the rehydration race; the winner's entry is authoritative.
		return existing, nil
	}
	e = &entry{s: s}
	st.entries[id] = e
	if s.Status == models.SessionStatusActive {
		observability.ActiveSessions.Inc()
	}
	slog.Info("session rehydrated", "session_id", id, "status", s.Status, "frames", s.FramesProcessed)
	return e, nil
}

// mirror runs one best-effort durable call on its own goroutine, detached
// from the request context. Failures are absorbed here.
func (st *Store) mirror(op string, fn func(ctx context.Context) error) {
	if st.durable == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			observability.PersistenceErrors.WithLabelValues(op).Inc()
			slog.Warn("durable mirror failed", "op", op, "error", err)
		}
	}()
}

func sessionFields(s *models.Session) map[string]any {
	return map[string]any{
		"status":           s.Status,
		"start_time":       s.StartTime,
		"end_time":         s.EndTime,
		"metadata":         s.Metadata,
		"frames_processed": s.FramesProcessed,
		"last_activity":    s.LastActivity,
	}
}

// sessionFromDoc rebuilds a Session from its durable mirror, default-filling
// fields an older or partial document may lack. The frame counter becomes
// authoritative; the in-memory detection sequence restarts empty while the
// full history stays in the detections log.
func sessionFromDoc(id string, doc map[string]any) models.Session {
	s := models.Session{
		ID:       id,
		Status:   models.SessionStatusActive,
		Metadata: map[string]any{},
	}

	if v, ok := doc["status"].(string); ok && v != "" {
		s.Status = models.SessionStatus(v)
	}
	if v, ok := doc["start_time"].(time.Time); ok {
		s.StartTime = v
	} else {
		s.StartTime = time.Now().UTC()
	}
	if v, ok := doc["end_time"].(time.Time); ok {
		s.EndTime = &v
	}
	if v, ok := doc["metadata"].(map[string]any); ok {
		s.Metadata = v
	}
	if v, ok := doc["frames_processed"].(int); ok {
		s.FramesProcessed = v
	} else if v, ok := doc["frames_processed"].(int32); ok {
		s.FramesProcessed = int(v)
	} else if v, ok := doc["frames_processed"].(int64); ok {
		s.FramesProcessed = int(v)
	} else if v, ok := doc["frames_processed"].(float64); ok {
		s.FramesProcessed = int(v)
	}
	if v, ok := doc["last_activity"].(time.Time); ok {
		s.LastActivity = v
	} else {
		s.LastActivity = s.StartTime
	}

	// status and end_time must stay consistent after a partial mirror.
	if s.Status == models.SessionStatusCompleted && s.EndTime == nil {
		t := s.LastActivity
		s.EndTime = &t
	}
	if s.Status != models.SessionStatusCompleted {
		s.EndTime = nil
	}

	return s
}

func clone(s *models.Session) *models.Session {
	out := *s
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	out.Metadata = make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	out.Detections = append([]models.DetectionRecord(nil), s.Detections...)
	return &out
}
