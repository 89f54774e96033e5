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

const nativeBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// NativeClient speaks the text-generation provider's structured API.
type NativeClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewNativeClient(cfg config.EnrichmentConfig) *NativeClient {
	return &NativeClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: nativeBaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *NativeClient) Name() string { return "native" }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *NativeClient) Analyze(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal enrichment request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		observability.EnrichmentFailures.WithLabelValues(c.Name()).Inc()
		return "", fmt.Errorf("native enrichment call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.EnrichmentFailures.WithLabelValues(c.Name()).Inc()
		return "", fmt.Errorf("read enrichment response: %w", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		observability.EnrichmentFailures.WithLabelValues(c.Name()).Inc()
		return "", fmt.Errorf("enrichment returned status %d: %s", resp.StatusCode, truncate(data, 300))
	}
	if resp.StatusCode != http.StatusOK {
		observability.EnrichmentFailures.WithLabelValues(c.Name()).Inc()
		if gr.Error != nil {
			return "", fmt.Errorf("enrichment returned status %d: %s", resp.StatusCode, gr.Error.Message)
		}
		return "", fmt.Errorf("enrichment returned status %d: %s", resp.StatusCode, truncate(data, 300))
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		observability.EnrichmentFailures.WithLabelValues(c.Name()).Inc()
		return "", fmt.Errorf("enrichment returned no candidates")
	}

	return gr.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}
