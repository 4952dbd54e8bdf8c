//go:build !linux && !darwin && !windows

package platform

import "context"

// GenericPlatform is used on operating systems without a dedicated
// implementation. It reports no optional capabilities.
type GenericPlatform struct{}

// New creates a generic platform instance.
func New() Platform {
	return &GenericPlatform{}
}

// Name returns the platform identifier.
func (p *GenericPlatform) Name() string { return "generic" }

// CPUModel is never available on generic platforms.
func (p *GenericPlatform) CPUModel(context.Context) (string, bool) { return "", false }

// RootDiskPath returns "/".
func (p *GenericPlatform) RootDiskPath() string { return "/" }
