// CPU usage collector: gathers overall CPU utilization.
// Uses gopsutil for cross-platform CPU metrics.

package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUResult holds the collected CPU usage data.
type CPUResult struct {
	Overall float64 `json:"overall"`
}

// CPUCollector collects CPU usage metrics.
type CPUCollector struct {
	window time.Duration
}

// NewCPUCollector creates a new CPU collector that measures utilization
// over the given window. A zero window compares against the previous call.
func NewCPUCollector(window time.Duration) *CPUCollector {
	return &CPUCollector{window: window}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Collect gathers overall CPU usage. It blocks for the measurement window.
func (c *CPUCollector) Collect(ctx context.Context) (interface{}, error) {
	overall, err := cpu.PercentWithContext(ctx, c.window, false)
	if err != nil {
		return nil, err
	}

	var result CPUResult
	if len(overall) > 0 {
		result.Overall = overall[0]
	}
	return result, nil
}

// IsAvailable always returns true: CPU metrics are available on all platforms.
func (c *CPUCollector) IsAvailable() bool { return true }
