//go:build linux

package platform

import (
	"bufio"
	"context"
	"os"
	"strings"
)

// LinuxPlatform reads processor details from procfs.
type LinuxPlatform struct {
	cpuinfoPath string
}

// New creates a new Linux platform instance.
func New() Platform {
	return &LinuxPlatform{cpuinfoPath: "/proc/cpuinfo"}
}

// Name returns the platform identifier.
func (p *LinuxPlatform) Name() string { return "linux" }

// CPUModel returns the first "model name" entry of /proc/cpuinfo.
func (p *LinuxPlatform) CPUModel(_ context.Context) (string, bool) {
	f, err := os.Open(p.cpuinfoPath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found || strings.TrimSpace(key) != "model name" {
			continue
		}
		if model := strings.TrimSpace(value); model != "" {
			return model, true
		}
	}
	return "", false
}

// RootDiskPath returns "/".
func (p *LinuxPlatform) RootDiskPath() string { return "/" }
