//go:build darwin

package platform

import (
	"context"
	"os/exec"
	"strings"
)

// DarwinPlatform queries sysctl for processor details.
type DarwinPlatform struct{}

// New creates a new macOS platform instance.
func New() Platform {
	return &DarwinPlatform{}
}

// Name returns the platform identifier.
func (p *DarwinPlatform) Name() string { return "darwin" }

// CPUModel returns machdep.cpu.brand_string.
func (p *DarwinPlatform) CPUModel(ctx context.Context) (string, bool) {
	out, err := exec.CommandContext(ctx, "sysctl", "-n", "machdep.cpu.brand_string").Output()
	if err != nil {
		return "", false
	}
	model := strings.TrimSpace(string(out))
	return model, model != ""
}

// RootDiskPath returns "/".
func (p *DarwinPlatform) RootDiskPath() string { return "/" }
