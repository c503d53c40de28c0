package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/etc/safeboot/install.conf", cfg.StorePath)
	assert.Equal(t, "/usr/sbin/safeboot", cfg.ToolchainBin)
	assert.Equal(t, "safeboot", cfg.Package)
	assert.Len(t, cfg.EFIDirs, 2)
	assert.NotEmpty(t, cfg.RebootCmd)
	assert.NotEmpty(t, cfg.FirmwareSetupCmd)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_path = "/tmp/install.conf"
subject = "/CN=Test Lab/"
efi_dirs = ["/boot/efi/EFI/test"]
luks_device = "/dev/nvme0n1p2"
verbose = true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/install.conf", cfg.StorePath)
	assert.Equal(t, "/CN=Test Lab/", cfg.Subject)
	assert.Equal(t, []string{"/boot/efi/EFI/test"}, cfg.EFIDirs)
	assert.Equal(t, "/dev/nvme0n1p2", cfg.LUKSDevice)
	assert.True(t, cfg.Verbose)

	// Untouched keys keep their defaults.
	assert.Equal(t, "/usr/sbin/safeboot", cfg.ToolchainBin)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("store_path = ["), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
