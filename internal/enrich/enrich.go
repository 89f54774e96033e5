package enrich

import (
	"context"

	"github.com/your-org/neurovision/internal/config"
)

// Strategy is one enrichment capability with a uniform prompt-in/text-out
// contract.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Chain builds the ranked strategy list for the configuration. The native
// client, when configured, is the only strategy: its failure is terminal and
// never falls through to the raw endpoint. The raw HTTP endpoint only serves
// deployments without a native client.
func Chain(cfg config.EnrichmentConfig) []Strategy {
	if cfg.Native && cfg.APIKey != "" {
		return []Strategy{NewNativeClient(cfg)}
	}
	if cfg.Endpoint != "" {
		return []Strategy{NewHTTPFallback(cfg)}
	}
	return nil
}

// Runner iterates strategies in priority order, stopping at the first
// success. When every configured strategy fails, the final diagnostic is
// returned; with no strategies configured both results are empty.
type Runner struct {
	strategies []Strategy
}

func NewRunner(strategies []Strategy) *Runner {
	return &Runner{strategies: strategies}
}

func (r *Runner) Configured() bool {
	return len(r.strategies) > 0
}

func (r *Runner) Analyze(ctx context.Context, prompt string) (text, errDiag string) {
	var lastErr error
	for _, s := range r.strategies {
		out, err := s.Analyze(ctx, prompt)
		if err == nil {
			return out, ""
		}
		lastErr = err
	}
	if lastErr != nil {
		return "", lastErr.Error()
	}
	return "", ""
}
