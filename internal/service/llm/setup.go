package llm

import (
	"fmt"
	"log/slog"

	"chatrelay/internal/config"
)

// SetupUpstreams builds the upstream pool from configuration.
// Fails fast when any entry is misconfigured or the pool is empty.
func SetupUpstreams(cfg *config.Config, logger *slog.Logger) (*UpstreamPool, error) {
	factory := NewProviderFactory(cfg)

	upstreams := make([]Upstream, 0, len(cfg.Upstreams))
	for _, u := range cfg.Upstreams {
		client, err := factory.CreateClient(u)
		if err != nil {
			return nil, fmt.Errorf("failed to create upstream client: %w", err)
		}
		params := factory.ParamsFor(u)
		upstreams = append(upstreams, Upstream{Client: client, Params: params})

		logger.Info("upstream available",
			"name", u.Name,
			"kind", u.Kind,
			"base_url", u.BaseURL,
			"model", params.Model,
		)
	}

	pool, err := NewUpstreamPool(upstreams, cfg.UpstreamTimeout, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("upstream pool initialized",
		"size", pool.Len(),
		"timeout", cfg.UpstreamTimeout.String(),
	)

	return pool, nil
}
