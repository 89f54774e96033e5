package models

// Flag is one triggered heuristic rule.
type Flag struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report is the derived wellbeing view over a session's metric history.
// It is computed per request and never persisted.
type Report struct {
	SessionID       string               `json:"session_id"`
	MetricsCount    int                  `json:"metrics_count"`
	Averages        map[string]*float64  `json:"averages"`
	Flags           []Flag               `json:"flags"`
	Recommendations []string             `json:"recommendations"`
	Timeseries      map[string][]float64 `json:"timeseries"`
	AIAnalysis      string               `json:"ai_analysis,omitempty"`
	AIAnalysisError string               `json:"ai_analysis_error,omitempty"`
}
