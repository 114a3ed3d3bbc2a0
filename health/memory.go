package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures a MemoryChecker. Thresholds are fractions
// of MaxAlloc in (0, 1).
type MemoryCheckerConfig struct {
	WarningThreshold  float64 // default 0.8
	CriticalThreshold float64 // default 0.95

	// MaxAlloc is the heap budget in bytes. Zero uses the memory the runtime
	// obtained from the OS.
	MaxAlloc uint64
}

// MemoryChecker reports heap usage against a budget.
type MemoryChecker struct {
	config MemoryCheckerConfig
	read   func(*runtime.MemStats)
}

func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config, read: runtime.ReadMemStats}
}

func (m *MemoryChecker) Name() string { return "memory" }

// Thresholds returns the effective warning and critical fractions.
func (m *MemoryChecker) Thresholds() (warning, critical float64) {
	return m.config.WarningThreshold, m.config.CriticalThreshold
}

func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	m.read(&stats)

	budget := m.config.MaxAlloc
	if budget == 0 {
		budget = stats.Sys
	}
	details := map[string]any{
		"alloc_bytes":  stats.Alloc,
		"heap_objects": stats.HeapObjects,
		"sys_bytes":    stats.Sys,
		"num_gc":       stats.NumGC,
		"goroutines":   runtime.NumGoroutine(),
	}
	if budget == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.Alloc) / float64(budget)
	details["max_alloc"] = budget
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
