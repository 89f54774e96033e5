package dto

type StartSessionRequest struct {
	Metadata map[string]any `json:"metadata"`
}

type SessionResponse struct {
	SessionID       string         `json:"session_id"`
	Status          string         `json:"status"`
	StartTime       string         `json:"start_time"`
	EndTime         *string        `json:"end_time,omitempty"`
	Metadata        map[string]any `json:"metadata"`
	FramesProcessed int            `json:"frames_processed"`
	LastActivity    string         `json:"last_activity"`
}

type IngestAck struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}
