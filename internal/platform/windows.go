//go:build windows

package platform

import (
	"context"
	"os/exec"
	"strings"
)

// WindowsPlatform implements Platform for Windows systems.
// Uses system commands for details gopsutil leaves empty.
type WindowsPlatform struct{}

// New creates a new Windows platform instance.
func New() Platform {
	return &WindowsPlatform{}
}

// Name returns the platform identifier.
func (p *WindowsPlatform) Name() string { return "windows" }

// CPUModel asks CIM for the processor name, then falls back to wmic,
// which is missing on recent Windows builds.
func (p *WindowsPlatform) CPUModel(ctx context.Context) (string, bool) {
	out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
		"(Get-CimInstance Win32_Processor | Select-Object -First 1).Name").Output()
	if err == nil {
		if model := strings.TrimSpace(string(out)); model != "" {
			return model, true
		}
	}

	out, err = exec.CommandContext(ctx, "wmic", "cpu", "get", "name").Output()
	if err != nil {
		return "", false
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return "", false
	}
	model := strings.TrimSpace(lines[1])
	return model, model != ""
}

// RootDiskPath returns the system drive.
func (p *WindowsPlatform) RootDiskPath() string { return `C:\` }
