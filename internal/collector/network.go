// Network I/O collector: gathers cumulative RX/TX byte counters.
// Uses gopsutil for cross-platform network metrics.

package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/net"
)

// NetworkResult holds byte counters summed over all interfaces since boot.
type NetworkResult struct {
	Rx uint64 `json:"rx"`
	Tx uint64 `json:"tx"`
}

// NetworkCollector collects network I/O metrics (bytes received/transmitted).
type NetworkCollector struct{}

// NewNetworkCollector creates a new network collector.
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{}
}

// Name returns the collector identifier.
func (c *NetworkCollector) Name() string { return "network" }

// Collect gathers the aggregate RX/TX counters.
func (c *NetworkCollector) Collect(ctx context.Context) (interface{}, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(counters) == 0 {
		return NetworkResult{}, nil
	}
	return NetworkResult{
		Rx: counters[0].BytesRecv,
		Tx: counters[0].BytesSent,
	}, nil
}

// IsAvailable always returns true: network metrics are available on all platforms.
func (c *NetworkCollector) IsAvailable() bool { return true }
