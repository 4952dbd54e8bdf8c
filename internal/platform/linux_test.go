//go:build linux

package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinuxCPUModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpuinfo")
	content := "processor\t: 0\nvendor_id\t: GenuineIntel\nmodel name\t: Intel(R) Xeon(R) CPU E5-2670 0 @ 2.60GHz\nflags\t: fpu\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	p := &LinuxPlatform{cpuinfoPath: path}
	model, ok := p.CPUModel(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Intel(R) Xeon(R) CPU E5-2670 0 @ 2.60GHz", model)
}

func TestLinuxCPUModel_Missing(t *testing.T) {
	p := &LinuxPlatform{cpuinfoPath: filepath.Join(t.TempDir(), "absent")}
	_, ok := p.CPUModel(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "/", p.RootDiskPath())
}
