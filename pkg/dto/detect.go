package dto

// DetectRequest is the JSON variant of a detection ingest. Clients either
// send a base64 data-URL frame for server-side extraction, or landmarks they
// extracted themselves. Multipart uploads bypass this type.
type DetectRequest struct {
	DataURL string `json:"data_url"`
	// DataURLLegacy accepts the camelCase key older clients send.
	DataURLLegacy string    `json:"dataUrl"`
	Landmarks     []float64 `json:"landmarks"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
}

type WSEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      any    `json:"data,omitempty"`
}
