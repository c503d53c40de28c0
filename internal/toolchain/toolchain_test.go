package toolchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaolin/bulwark/internal/action"
	"github.com/zaolin/bulwark/internal/config"
)

func testToolchain(t *testing.T) *Toolchain {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.KeyFile = filepath.Join(t.TempDir(), "cert.pem")
	return New(cfg)
}

func TestInstalledCheckUsesPackageDatabase(t *testing.T) {
	tc := testToolchain(t)

	spec := tc.InstalledCheck()
	assert.Equal(t, action.InterpretOutputPattern, spec.Interpret)
	assert.Contains(t, spec.Args, "safeboot")
	assert.Equal(t, "install ok installed", spec.Pattern)
}

func TestKeyInitCarriesSubject(t *testing.T) {
	tc := testToolchain(t)
	tc.Subject = "/CN=Test/"

	spec := tc.KeyInit()
	assert.Equal(t, []string{"key-init", "-s", "/CN=Test/"}, spec.Args)
	assert.True(t, spec.Interactive)
}

func TestSealStoragePINFlag(t *testing.T) {
	tc := testToolchain(t)

	assert.Contains(t, tc.SealStorage(true).Args, "--pin")
	assert.NotContains(t, tc.SealStorage(false).Args, "--pin")
}

func TestKeysExist(t *testing.T) {
	tc := testToolchain(t)

	assert.False(t, tc.KeysExist())
	require.NoError(t, os.WriteFile(tc.KeyFile, []byte("cert"), 0644))
	assert.True(t, tc.KeysExist())
}

func TestRebootSpecsUseConfiguredCommands(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RebootCmd = []string{"/usr/bin/systemctl", "reboot"}
	cfg.FirmwareSetupCmd = []string{"/usr/bin/systemctl", "reboot", "--firmware-setup"}
	tc := New(cfg)

	reboot := tc.Reboot()
	assert.Equal(t, "/usr/bin/systemctl", reboot.Path)
	assert.Equal(t, []string{"reboot"}, reboot.Args)

	setup := tc.RebootFirmwareSetup()
	assert.Equal(t, []string{"reboot", "--firmware-setup"}, setup.Args)
}
