// Package load decides whether the host is too busy to hold streaming
// connections open.
package load

import (
	"context"
	"log/slog"

	llmSvc "chatrelay/internal/domain/services/llm"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Sampler returns a utilization percentage in [0, 100]
type Sampler func(ctx context.Context) (float64, error)

// Monitor samples CPU and memory utilization on every call.
// No smoothing and no caching: each answer reflects a fresh sample.
type Monitor struct {
	threshold float64
	cpu       Sampler
	memory    Sampler
	logger    *slog.Logger
}

var _ llmSvc.LoadMonitor = (*Monitor)(nil)

// NewMonitor creates a host monitor backed by gopsutil
func NewMonitor(threshold float64, logger *slog.Logger) *Monitor {
	return NewMonitorWithSamplers(threshold, CPUPercent, MemoryPercent, logger)
}

// NewMonitorWithSamplers creates a monitor with custom samplers
func NewMonitorWithSamplers(threshold float64, cpuSampler, memSampler Sampler, logger *slog.Logger) *Monitor {
	return &Monitor{
		threshold: threshold,
		cpu:       cpuSampler,
		memory:    memSampler,
		logger:    logger,
	}
}

// IsOverloaded reports whether CPU or memory utilization exceeds the threshold.
// A failed sample counts as 0% for that resource.
func (m *Monitor) IsOverloaded(ctx context.Context) bool {
	cpuPercent := m.sample(ctx, "cpu", m.cpu)
	memPercent := m.sample(ctx, "memory", m.memory)

	overloaded := cpuPercent > m.threshold || memPercent > m.threshold
	if overloaded {
		m.logger.Info("host overloaded, buffering reply",
			"cpu_percent", cpuPercent,
			"memory_percent", memPercent,
			"threshold", m.threshold,
		)
	}
	return overloaded
}

func (m *Monitor) sample(ctx context.Context, resource string, s Sampler) float64 {
	v, err := s(ctx)
	if err != nil {
		m.logger.Warn("load sample failed", "resource", resource, "error", err)
		return 0
	}
	return v
}

// CPUPercent samples system-wide CPU utilization since the previous call.
// The first call in a process compares against boot time.
func CPUPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

// MemoryPercent samples virtual memory utilization
func MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// Static always gives the same answer. Used to force a response mode.
type Static bool

// IsOverloaded returns the fixed answer
func (s Static) IsOverloaded(ctx context.Context) bool {
	return bool(s)
}

// Response modes accepted by New
const (
	ModeAuto     = "auto"
	ModeStream   = "stream"
	ModeBuffered = "buffered"
)

// New returns the monitor for a response mode. "stream" never reports
// overload, "buffered" always does, anything else samples the host.
func New(mode string, threshold float64, logger *slog.Logger) llmSvc.LoadMonitor {
	switch mode {
	case ModeStream:
		return Static(false)
	case ModeBuffered:
		return Static(true)
	default:
		return NewMonitor(threshold, logger)
	}
}
