// Package toolchain builds action specs for the external secure-boot
// toolchain. The commands themselves are opaque: key generation,
// signing and sealing all happen inside the toolchain, bulwark only
// sequences them and checks their results.
package toolchain

import (
	"os"

	"github.com/zaolin/bulwark/internal/action"
	"github.com/zaolin/bulwark/internal/config"
)

// dpkg reports this status line for a fully installed package.
const installedStatus = "install ok installed"

// Toolchain describes the external secure-boot toolchain installation.
type Toolchain struct {
	Bin     string
	Package string
	Subject string
	KeyFile string

	RebootCmd        []string
	FirmwareSetupCmd []string
}

// New builds a Toolchain from the configuration.
func New(cfg *config.Config) *Toolchain {
	return &Toolchain{
		Bin:              cfg.ToolchainBin,
		Package:          cfg.Package,
		Subject:          cfg.Subject,
		KeyFile:          cfg.KeyFile,
		RebootCmd:        cfg.RebootCmd,
		FirmwareSetupCmd: cfg.FirmwareSetupCmd,
	}
}

// InstalledCheck probes the package database for the toolchain package.
// An OK outcome means the toolchain is already present and provisioning
// can be skipped.
func (t *Toolchain) InstalledCheck() action.Spec {
	return action.Spec{
		Name:      "check-installed",
		Path:      "/usr/bin/dpkg-query",
		Args:      []string{"-W", "-f=${Status}", t.Package},
		Interpret: action.InterpretOutputPattern,
		Pattern:   installedStatus,
	}
}

// Provision installs the toolchain package and its prerequisites.
func (t *Toolchain) Provision() action.Spec {
	return action.Spec{
		Name:        "provision",
		Path:        "/usr/bin/apt-get",
		Args:        []string{"install", "-y", t.Package},
		Interactive: true,
	}
}

// KeysExist reports whether signing key material is already present.
// Key generation is not safe to repeat, so the sequencer must not
// re-run key-init after a mid-phase restart.
func (t *Toolchain) KeysExist() bool {
	_, err := os.Stat(t.KeyFile)
	return err == nil
}

// KeyInit generates the signing key material with the configured
// subject identity. Interactive: the toolchain prompts for key
// passphrases.
func (t *Toolchain) KeyInit() action.Spec {
	return action.Spec{
		Name:        "key-init",
		Path:        t.Bin,
		Args:        []string{"key-init", "-s", t.Subject},
		Interactive: true,
	}
}

// SignUEFIKeys enrolls the platform keys into UEFI. Fails unless the
// firmware is in secure boot setup mode.
func (t *Toolchain) SignUEFIKeys() action.Spec {
	return action.Spec{
		Name:        "uefi-sign-keys",
		Path:        t.Bin,
		Args:        []string{"uefi-sign-keys"},
		Interactive: true,
	}
}

// SignRecovery signs the recovery boot image.
func (t *Toolchain) SignRecovery() action.Spec {
	return action.Spec{
		Name:        "recovery-sign",
		Path:        t.Bin,
		Args:        []string{"recovery-sign"},
		Interactive: true,
	}
}

// SignLinux signs the primary boot image.
func (t *Toolchain) SignLinux() action.Spec {
	return action.Spec{
		Name:        "linux-sign",
		Path:        t.Bin,
		Args:        []string{"linux-sign"},
		Interactive: true,
	}
}

// SealStorage binds the disk encryption key to the measured system
// state, optionally gated by a PIN.
func (t *Toolchain) SealStorage(withPIN bool) action.Spec {
	args := []string{"luks-seal"}
	if withPIN {
		args = append(args, "--pin")
	}
	return action.Spec{
		Name:        "luks-seal",
		Path:        t.Bin,
		Args:        args,
		Interactive: true,
	}
}

// RebootRecovery reboots into the signed recovery boot entry.
func (t *Toolchain) RebootRecovery() action.Spec {
	return action.Spec{
		Name: "recovery-reboot",
		Path: t.Bin,
		Args: []string{"recovery-reboot"},
	}
}

// Reboot performs a normal reboot.
func (t *Toolchain) Reboot() action.Spec {
	return action.Spec{
		Name: "reboot",
		Path: t.RebootCmd[0],
		Args: t.RebootCmd[1:],
	}
}

// RebootFirmwareSetup reboots into the firmware setup screen so the
// operator can enable secure boot setup mode.
func (t *Toolchain) RebootFirmwareSetup() action.Spec {
	return action.Spec{
		Name: "firmware-setup-reboot",
		Path: t.FirmwareSetupCmd[0],
		Args: t.FirmwareSetupCmd[1:],
	}
}
