// Package platform provides an OS abstraction layer for host facts that
// gopsutil does not report reliably on every system.
// Each supported OS implements the Platform interface; every lookup is
// best-effort and reports absence instead of failing.
package platform

import "context"

// Platform provides OS-specific capability lookups.
type Platform interface {
	// Name returns the platform name (linux, darwin, windows, generic).
	Name() string

	// CPUModel returns the processor brand string.
	// ok is false if it cannot be determined.
	CPUModel(ctx context.Context) (model string, ok bool)

	// RootDiskPath returns the path whose filesystem represents the host disk.
	RootDiskPath() string
}
