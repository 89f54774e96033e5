package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/your-org/neurovision/internal/config"
	"github.com/your-org/neurovision/internal/observability"
)

// HTTPFallback posts the prompt to a configured endpoint with a bearer
// credential. It serves deployments without a native enrichment client.
type HTTPFallback struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPFallback(cfg config.EnrichmentConfig) *HTTPFallback {
	return &HTTPFallback{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (f *HTTPFallback) Name() string { return "http" }

type fallbackResponse struct {
	Text    string `json:"text"`
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (f *HTTPFallback) Analyze(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"model":  f.model,
		"prompt": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal enrichment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		observability.EnrichmentFailures.WithLabelValues(f.Name()).Inc()
		return "", fmt.Errorf("enrichment fallback call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.EnrichmentFailures.WithLabelValues(f.Name()).Inc()
		return "", fmt.Errorf("read enrichment response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		observability.EnrichmentFailures.WithLabelValues(f.Name()).Inc()
		return "", fmt.Errorf("enrichment endpoint returned status %d: %s", resp.StatusCode, truncate(data, 300))
	}

	var fr fallbackResponse
	if err := json.Unmarshal(data, &fr); err != nil {
		observability.EnrichmentFailures.WithLabelValues(f.Name()).Inc()
		return "", fmt.Errorf("decode enrichment response: %w", err)
	}

	switch {
	case fr.Text != "":
		return fr.Text, nil
	case len(fr.Choices) > 0 && fr.Choices[0].Message.Content != "":
		return fr.Choices[0].Message.Content, nil
	case len(fr.Choices) > 0 && fr.Choices[0].Text != "":
		return fr.Choices[0].Text, nil
	}

	observability.EnrichmentFailures.WithLabelValues(f.Name()).Inc()
	return "", fmt.Errorf("enrichment endpoint returned no text")
}
