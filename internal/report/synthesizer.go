package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/neurovision/internal/enrich"
	"github.com/your-org/neurovision/internal/models"
	"github.com/your-org/neurovision/internal/observability"
	"github.com/your-org/neurovision/internal/storage"
)

// ErrNotFound means neither a session document nor any metric sample exists
// for the id.
var ErrNotFound = errors.New("session not found")

// The five metric names a report aggregates.
var trackedMetrics = []string{"attention", "drowsiness", "blink_rate", "face_area", "ear"}

type rule struct {
	metric  string
	code    string
	message string
	fires   func(avg float64) bool
}

// Rule order is fixed: flags appear in this order, not by severity.
var rules = []rule{
	{"drowsiness", "high_drowsiness", "Average drowsiness is high", func(v float64) bool { return v >= 60 }},
	{"attention", "low_attention", "Average attention is low", func(v float64) bool { return v < 40 }},
	{"blink_rate", "abnormal_blink_rate", "Blink rate is outside the normal range", func(v float64) bool { return v > 40 || v < 2 }},
	{"face_area", "small_face_area", "Face occupies a very small part of the frame", func(v float64) bool { return v < 5 }},
	{"ear", "very_low_ear", "Eye aspect ratio is very low", func(v float64) bool { return v < 0.12 }},
}

// Only three flag codes carry a recommendation; the rest inform without one.
var recommendations = map[string]string{
	"high_drowsiness":     "Consider taking a rest break; drowsiness levels were elevated during this session.",
	"low_attention":       "Try reducing distractions in your environment to improve attention.",
	"abnormal_blink_rate": "An unusual blink rate can indicate fatigue or dry eyes; consider an eye-care check.",
}

const noConcernsRecommendation = "No concerns detected in this session. Keep up the healthy habits."

// Synthesizer turns a session's durable metric history into a wellbeing
// report: aggregate, flag, recommend, optionally enrich. It holds no state
// between requests.
type Synthesizer struct {
	durable  storage.DurableStore
	enricher *enrich.Runner
}

func NewSynthesizer(durable storage.DurableStore, enricher *enrich.Runner) *Synthesizer {
	return &Synthesizer{durable: durable, enricher: enricher}
}

// Generate builds the report for a session. Enrichment failure is recorded
// inside the report, never returned as an error.
func (s *Synthesizer) Generate(ctx context.Context, sessionID string) (*models.Report, error) {
	if s.durable == nil {
		return nil, ErrNotFound
	}

	doc, err := s.durable.Find(ctx, storage.SessionsCollection, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	samples, err := s.durable.FindAll(ctx, storage.MetricsCollection, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load metric history: %w", err)
	}
	if doc == nil && len(samples) == 0 {
		return nil, ErrNotFound
	}

	rep := &models.Report{
		SessionID:    sessionID,
		MetricsCount: len(samples),
		Averages:     make(map[string]*float64, len(trackedMetrics)),
		Flags:        []models.Flag{},
		Timeseries:   make(map[string][]float64, len(trackedMetrics)),
	}

	for _, name := range trackedMetrics {
		series := collectSeries(samples, name)
		rep.Timeseries[name] = series
		rep.Averages[name] = mean(series)
	}

	for _, r := range rules {
		avg := rep.Averages[r.metric]
		if avg == nil {
			continue
		}
		if r.fires(*avg) {
			rep.Flags = append(rep.Flags, models.Flag{Code: r.code, Message: r.message})
		}
	}

	for _, f := range rep.Flags {
		if rec, ok := recommendations[f.Code]; ok {
			rep.Recommendations = append(rep.Recommendations, rec)
		}
	}
	if len(rep.Flags) == 0 {
		rep.Recommendations = []string{noConcernsRecommendation}
	}

	if s.enricher != nil && s.enricher.Configured() {
		text, diag := s.enricher.Analyze(ctx, BuildPrompt(rep))
		rep.AIAnalysis = text
		rep.AIAnalysisError = diag
	}

	observability.ReportsGenerated.Inc()
	return rep, nil
}

// collectSeries pulls every present numeric value of one metric across the
// sample documents, in order. Absent or non-numeric values are skipped.
func collectSeries(samples []map[string]any, name string) []float64 {
	var series []float64
	for _, sample := range samples {
		metrics, ok := sample["metrics"].(map[string]any)
		if !ok {
			continue
		}
		if v, ok := toFloat(metrics[name]); ok {
			series = append(series, v)
		}
	}
	return series
}

// mean returns nil for an empty series: a metric nobody reported has no
// average, not a zero one.
func mean(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	avg := sum / float64(len(series))
	return &avg
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// BuildPrompt renders the fixed-structure enrichment prompt: sample count,
// every computed average, and the head of each raw series with its true
// length noted.
func BuildPrompt(rep *models.Report) string {
	var b strings.Builder
	b.WriteString("You are a wellbeing assistant. Analyze the following facial metric data ")
	b.WriteString("collected during a monitoring session and write a short, friendly summary ")
	b.WriteString("with practical advice.\n\n")
	fmt.Fprintf(&b, "Samples collected: %d\n", rep.MetricsCount)

	for _, name := range trackedMetrics {
		if avg := rep.Averages[name]; avg != nil {
			fmt.Fprintf(&b, "Average %s: %.2f\n", name, *avg)
		} else {
			fmt.Fprintf(&b, "Average %s: not reported\n", name)
		}
	}

	for _, name := range trackedMetrics {
		series := rep.Timeseries[name]
		if len(series) == 0 {
			continue
		}
		head := series
		if len(head) > 5 {
			head = head[:5]
		}
		vals := make([]string, len(head))
		for i, v := range head {
			vals[i] = fmt.Sprintf("%.2f", v)
		}
		fmt.Fprintf(&b, "%s values: [%s] (showing %d of %d)\n", name, strings.Join(vals, ", "), len(head), len(series))
	}

	return b.String()
}
