package llm

import (
	"fmt"
	"log/slog"
	"time"

	"chatrelay/internal/balance"
	llmSvc "chatrelay/internal/domain/services/llm"
)

// Upstream is one completion client with the parameters it is called with
type Upstream struct {
	Client llmSvc.CompletionClient
	Params GenerationParams
}

// UpstreamPool is the immutable set of upstream clients built at startup.
// Safe for concurrent use.
type UpstreamPool struct {
	picker  *balance.Picker[Upstream]
	timeout time.Duration
	logger  *slog.Logger
}

// NewUpstreamPool creates a pool. timeout bounds each completion call; zero disables it.
func NewUpstreamPool(upstreams []Upstream, timeout time.Duration, logger *slog.Logger) (*UpstreamPool, error) {
	picker, err := balance.NewPicker(upstreams)
	if err != nil {
		return nil, fmt.Errorf("upstream pool: %w", err)
	}
	return &UpstreamPool{
		picker:  picker,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Pick returns one upstream chosen uniformly at random
func (p *UpstreamPool) Pick() Upstream {
	return p.picker.Pick()
}

// Len returns the number of upstreams
func (p *UpstreamPool) Len() int {
	return p.picker.Len()
}

// NewEngine binds a fresh engine to a randomly picked upstream
func (p *UpstreamPool) NewEngine() *Engine {
	upstream := p.Pick()
	return NewEngine(upstream.Client, upstream.Params, p.timeout, p.logger)
}
