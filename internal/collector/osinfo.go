// OS info collector: gathers OS name, version, kernel and architecture.
// gopsutil host info is the primary source; on Linux the distribution's
// PRETTY_NAME from /etc/os-release is preferred when readable.

package collector

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// OSInfoResult holds the collected OS information.
type OSInfoResult struct {
	OSName       string `json:"os_name"`    // e.g., "Ubuntu 22.04.3 LTS", "darwin", "Microsoft Windows 11 Pro"
	OSVersion    string `json:"os_version"` // e.g., "22.04", "14.2.1", "10.0.22631"
	Kernel       string `json:"kernel"`
	Architecture string `json:"architecture"`
}

// Display returns "<name> <version>" unless the name already carries the version.
func (r OSInfoResult) Display() string {
	if r.OSVersion == "" || r.OSVersion == "unknown" || strings.Contains(r.OSName, r.OSVersion) {
		return r.OSName
	}
	return r.OSName + " " + r.OSVersion
}

// OSInfoCollector collects OS name and version information.
type OSInfoCollector struct {
	osReleasePath string
}

// NewOSInfoCollector creates a new OS info collector.
func NewOSInfoCollector() *OSInfoCollector {
	return &OSInfoCollector{osReleasePath: "/etc/os-release"}
}

// Name returns the collector identifier.
func (c *OSInfoCollector) Name() string { return "osinfo" }

// Collect gathers OS facts. Missing pieces fall back to runtime values; it
// never returns an error.
func (c *OSInfoCollector) Collect(ctx context.Context) (interface{}, error) {
	result := OSInfoResult{
		OSName:       runtime.GOOS,
		OSVersion:    "unknown",
		Architecture: runtime.GOARCH,
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		if info.Platform != "" {
			result.OSName = info.Platform
		}
		if info.PlatformVersion != "" {
			result.OSVersion = info.PlatformVersion
		}
		result.Kernel = info.KernelVersion
		if info.KernelArch != "" {
			result.Architecture = info.KernelArch
		}
	}

	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile(c.osReleasePath); err == nil {
			fields := parseKeyValueFile(string(data))
			if pretty, ok := fields["PRETTY_NAME"]; ok && pretty != "" {
				result.OSName = strings.Trim(pretty, "\"")
			}
			if version, ok := fields["VERSION_ID"]; ok && version != "" {
				result.OSVersion = strings.Trim(version, "\"")
			}
		}
	}

	return result, nil
}

// IsAvailable always returns true: OS info is available on all platforms.
func (c *OSInfoCollector) IsAvailable() bool { return true }

// parseKeyValueFile parses a file with KEY=VALUE lines (like /etc/os-release).
func parseKeyValueFile(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
	}
	return fields
}
