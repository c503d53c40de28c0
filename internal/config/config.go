package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the well-known location of the bulwark configuration.
const DefaultPath = "/etc/bulwark/config.toml"

// Config holds the bulwark configuration
type Config struct {
	// StorePath is the install progress record shared with the toolchain.
	StorePath string `toml:"store_path"`

	ToolchainBin string `toml:"toolchain_bin"`
	Package      string `toml:"package"`
	Subject      string `toml:"subject"`
	KeyFile      string `toml:"key_file"`

	// EFIDirs are the boot entry directories cleared before recovery
	// signing. The ESP is usually too small to hold both the old and the
	// newly signed images at once.
	EFIDirs   []string `toml:"efi_dirs"`
	BackupDir string   `toml:"backup_dir"`

	// LUKSDevice is the device sealed in the recovery environment.
	// Empty disables the header precheck before sealing.
	LUKSDevice string `toml:"luks_device"`

	RebootCmd        []string `toml:"reboot_cmd"`
	FirmwareSetupCmd []string `toml:"firmware_setup_cmd"`

	Verbose bool `toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		StorePath:        "/etc/safeboot/install.conf",
		ToolchainBin:     "/usr/sbin/safeboot",
		Package:          "safeboot",
		Subject:          "/CN=Secure Boot signing key/",
		KeyFile:          "/etc/safeboot/cert.pem",
		EFIDirs:          []string{"/boot/efi/EFI/linux", "/boot/efi/EFI/recovery"},
		BackupDir:        "/var/lib/bulwark",
		RebootCmd:        []string{"/sbin/reboot"},
		FirmwareSetupCmd: []string{"/bin/systemctl", "reboot", "--firmware-setup"},
	}
}

// Load loads configuration from a TOML file
// If path is empty, returns default config
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
