// Disk usage collector: gathers usage of the filesystem holding the host root.
// Uses gopsutil for cross-platform disk metrics.

package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskResult holds usage for the monitored filesystem.
type DiskResult struct {
	Path  string `json:"path"`
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
}

// UsedPercent returns used/total as a percentage, or 0 for an empty filesystem.
func (d DiskResult) UsedPercent() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Used) / float64(d.Total) * 100
}

// DiskCollector collects disk usage for a single mount path.
type DiskCollector struct {
	path string
}

// NewDiskCollector creates a new disk collector for path.
func NewDiskCollector(path string) *DiskCollector {
	return &DiskCollector{path: path}
}

// Name returns the collector identifier.
func (c *DiskCollector) Name() string { return "disk" }

// Collect gathers usage for the configured path.
func (c *DiskCollector) Collect(ctx context.Context) (interface{}, error) {
	usage, err := disk.UsageWithContext(ctx, c.path)
	if err != nil {
		return nil, err
	}
	if usage.Total == 0 {
		return nil, fmt.Errorf("filesystem at %s reports zero size", c.path)
	}
	return DiskResult{
		Path:  c.path,
		Total: usage.Total,
		Used:  usage.Used,
	}, nil
}

// IsAvailable always returns true: disk metrics are available on all platforms.
func (c *DiskCollector) IsAvailable() bool { return true }
