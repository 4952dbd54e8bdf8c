// Host capacity collectors: core counts and CPU model for the host descriptor.

package collector

import (
	"context"
	"errors"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/atlas-monitor/agent/internal/platform"
)

// CoreCounts holds physical and logical processor counts.
// Either may be zero when the OS does not report it.
type CoreCounts struct {
	Physical int `json:"physical"`
	Logical  int `json:"logical"`
}

// CoreCountCollector collects processor counts.
type CoreCountCollector struct{}

// NewCoreCountCollector creates a new core count collector.
func NewCoreCountCollector() *CoreCountCollector {
	return &CoreCountCollector{}
}

// Name returns the collector identifier.
func (c *CoreCountCollector) Name() string { return "cores" }

// Collect gathers physical and logical counts. A failed physical count is
// not an error; the descriptor clamps it to one.
func (c *CoreCountCollector) Collect(ctx context.Context) (interface{}, error) {
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	physical, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		physical = 0
	}
	return CoreCounts{Physical: physical, Logical: logical}, nil
}

// IsAvailable always returns true: core counts are available on all platforms.
func (c *CoreCountCollector) IsAvailable() bool { return true }

var errNoCPUModel = errors.New("cpu model not reported")

// CPUModelCollector resolves the processor brand string, asking the
// platform first and gopsutil second.
type CPUModelCollector struct {
	platform platform.Platform
}

// NewCPUModelCollector creates a CPU model collector. p may be nil.
func NewCPUModelCollector(p platform.Platform) *CPUModelCollector {
	return &CPUModelCollector{platform: p}
}

// Name returns the collector identifier.
func (c *CPUModelCollector) Name() string { return "cpumodel" }

// Collect returns the model string.
func (c *CPUModelCollector) Collect(ctx context.Context) (interface{}, error) {
	if c.platform != nil {
		if model, ok := c.platform.CPUModel(ctx); ok {
			return model, nil
		}
	}

	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if model := strings.TrimSpace(info.ModelName); model != "" {
			return model, nil
		}
	}
	return nil, errNoCPUModel
}

// IsAvailable always returns true: the lookup degrades to "Unknown".
func (c *CPUModelCollector) IsAvailable() bool { return true }
