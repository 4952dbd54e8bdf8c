package collector

import (
	"context"
	"math"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-monitor/agent/internal/models"
	"github.com/atlas-monitor/agent/internal/platform"
)

const bytesPerGB = 1024 * 1024 * 1024

// Options tune what the Source reports.
type Options struct {
	// Location overrides hostname-based location inference.
	Location string
	// DiskPath is the filesystem reported as the host disk.
	// Empty means the platform root.
	DiskPath string
	// CPUWindow is how long a CPU sample measures utilization.
	CPUWindow time.Duration
}

// Source is the agent's metrics source. It never fails: collection faults
// degrade to documented defaults and are only logged.
type Source struct {
	samples  *Registry
	host     *Registry
	location string
	logger   *zap.Logger

	hostname  func() (string, error)
	ipAddress func(ctx context.Context) string
}

// NewSource wires the gopsutil collectors for p.
func NewSource(p platform.Platform, opts Options, logger *zap.Logger) *Source {
	if opts.DiskPath == "" {
		opts.DiskPath = p.RootDiskPath()
	}
	if opts.CPUWindow <= 0 {
		opts.CPUWindow = time.Second
	}
	logger = logger.Named("collector")

	memory := NewMemoryCollector()
	disk := NewDiskCollector(opts.DiskPath)

	samples := NewRegistry(logger)
	samples.Register(NewCPUCollector(opts.CPUWindow))
	samples.Register(memory)
	samples.Register(disk)
	samples.Register(NewNetworkCollector())
	samples.Register(NewUptimeCollector())

	host := NewRegistry(logger)
	host.Register(NewOSInfoCollector())
	host.Register(NewCoreCountCollector())
	host.Register(NewCPUModelCollector(p))
	host.Register(memory)
	host.Register(disk)

	return NewSourceFromRegistries(samples, host, opts.Location, logger)
}

// NewSourceFromRegistries builds a Source over caller-supplied registries.
// samples must provide cpu, memory, disk, network and uptime; host may
// provide osinfo, cores, cpumodel, memory and disk.
func NewSourceFromRegistries(samples, host *Registry, location string, logger *zap.Logger) *Source {
	return &Source{
		samples:   samples,
		host:      host,
		location:  location,
		logger:    logger,
		hostname:  os.Hostname,
		ipAddress: resolveIPAddress,
	}
}

// Sample returns the current utilization readings. If any reading is
// missing it returns models.DefaultSample.
func (s *Source) Sample(ctx context.Context) models.MetricSample {
	results, err := s.samples.CollectAll(ctx)
	if err != nil {
		s.logger.Warn("Error collecting metrics, reporting defaults", zap.Error(err))
		return models.DefaultSample()
	}

	sample, ok := assembleSample(results)
	if !ok {
		s.logger.Warn("Incomplete metric readings, reporting defaults")
		return models.DefaultSample()
	}
	return sample
}

// assembleSample maps collector results into a MetricSample.
func assembleSample(results map[string]interface{}) (models.MetricSample, bool) {
	cpu, ok := results["cpu"].(CPUResult)
	if !ok {
		return models.MetricSample{}, false
	}
	mem, ok := results["memory"].(MemoryResult)
	if !ok {
		return models.MetricSample{}, false
	}
	disk, ok := results["disk"].(DiskResult)
	if !ok {
		return models.MetricSample{}, false
	}
	net, ok := results["network"].(NetworkResult)
	if !ok {
		return models.MetricSample{}, false
	}
	uptime, ok := results["uptime"].(uint64)
	if !ok {
		return models.MetricSample{}, false
	}

	return models.MetricSample{
		CPUUsage:    clampPercent(round(cpu.Overall, 2)),
		MemoryUsage: clampPercent(round(mem.UsedPercent, 2)),
		DiskUsage:   clampPercent(round(disk.UsedPercent(), 2)),
		NetworkRxGB: round(float64(net.Rx)/bytesPerGB, 3),
		NetworkTxGB: round(float64(net.Tx)/bytesPerGB, 3),
		Uptime:      models.UptimeText(uptime),
	}, true
}

// DescribeHost builds a fresh host descriptor. Memory or disk totals that
// cannot be read yield the minimal descriptor; any other missing fact
// falls back to its own default.
func (s *Source) DescribeHost(ctx context.Context) models.HostDescriptor {
	hostname, err := s.hostname()
	if err != nil || hostname == "" {
		s.logger.Warn("Hostname unavailable", zap.Error(err))
		hostname = "unknown-host"
	}

	results, err := s.host.CollectAll(ctx)
	if err != nil {
		s.logger.Debug("Some host facts unavailable", zap.Error(err))
	}

	osinfo, ok := results["osinfo"].(OSInfoResult)
	if !ok {
		osinfo = OSInfoResult{OSName: runtime.GOOS, Architecture: runtime.GOARCH}
	}

	mem, memOK := results["memory"].(MemoryResult)
	disk, diskOK := results["disk"].(DiskResult)
	if !memOK || !diskOK {
		s.logger.Error("Error collecting server info, using minimal descriptor")
		return models.MinimalHostDescriptor(hostname, osinfo.OSName, osinfo.Kernel, osinfo.Architecture)
	}

	d := models.HostDescriptor{
		ServerName:    hostname,
		IPAddress:     s.ipAddress(ctx),
		Location:      resolveLocation(s.location, hostname),
		OS:            osinfo.Display(),
		Kernel:        osinfo.Kernel,
		Architecture:  osinfo.Architecture,
		CPUModel:      "Unknown",
		TotalMemoryGB: round(float64(mem.Total)/bytesPerGB, 2),
		TotalDiskGB:   round(float64(disk.Total)/bytesPerGB, 2),
	}
	if model, ok := results["cpumodel"].(string); ok && model != "" {
		d.CPUModel = model
	}
	if cores, ok := results["cores"].(CoreCounts); ok {
		d.TotalCores = cores.Physical
		d.TotalThreads = cores.Logical
	}
	d.Normalize()

	s.logger.Info("Server info collected",
		zap.String("server_name", d.ServerName),
		zap.String("ip_address", d.IPAddress))
	return d
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
