package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zaolin/bulwark/internal/config"
	"github.com/zaolin/bulwark/internal/firmware"
	"github.com/zaolin/bulwark/internal/prompt"
	"github.com/zaolin/bulwark/internal/store"
	"github.com/zaolin/bulwark/internal/tpm"
	"github.com/zaolin/bulwark/internal/wizard"
)

// Run executes the status command
func (c *StatusCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(prompt.TitleStyle.Render("bulwark status"))
	fmt.Println("")

	printProgress(cfg)
	printFirmware()
	printTPM()
	printKernel()

	return nil
}

func printProgress(cfg *config.Config) {
	fmt.Println("Install progress")
	fmt.Println("================")

	st := store.New(cfg.StorePath)
	phase, err := st.Phase()
	if err != nil {
		fmt.Printf("  phase: (unreadable: %v)\n\n", err)
		return
	}

	fmt.Printf("  record: %s\n", st.Path())
	fmt.Printf("  phase:  %d (%s)\n", phase, wizard.PhaseName(phase))

	if v, ok, _ := st.Get(store.KeySealPIN); ok {
		pin := "yes"
		if v == "0" {
			pin = "no"
		}
		fmt.Printf("  seal with PIN: %s\n", pin)
	}
	fmt.Println("")
}

func printFirmware() {
	fmt.Println("Firmware")
	fmt.Println("========")

	state, err := firmware.ReadState()
	if err != nil {
		fmt.Printf("  (unreadable: %v)\n\n", err)
		return
	}
	if !state.Supported {
		fmt.Println("  UEFI variables not available (legacy BIOS boot?)")
		fmt.Println("")
		return
	}

	fmt.Printf("  secure boot: %s\n", onOff(state.SecureBoot))
	fmt.Printf("  setup mode:  %s\n", onOff(state.SetupMode))
	fmt.Println("")
}

func printTPM() {
	fmt.Println("TPM")
	fmt.Println("===")

	client := tpm.New()
	if !client.WaitForDevice(500 * time.Millisecond) {
		fmt.Println("  no TPM device found")
		fmt.Println("")
		return
	}

	info, err := client.GetInfo()
	if err != nil {
		fmt.Printf("  (unreadable: %v)\n\n", err)
		return
	}

	fmt.Printf("  manufacturer: %s", info.Manufacturer)
	if info.VendorString != "" {
		fmt.Printf(" (%s)", info.VendorString)
	}
	fmt.Println("")
	if info.FirmwareVersion != "" {
		fmt.Printf("  firmware:     %s\n", info.FirmwareVersion)
	}
	if info.SpecRevision != "" {
		fmt.Printf("  spec rev:     %s\n", info.SpecRevision)
	}

	if status, err := client.GetLockoutStatus(); err == nil {
		if status.InLockout {
			fmt.Println(prompt.WarnStyle.Render("  dictionary attack lockout active"))
			if status.LockoutRecovery > 0 {
				fmt.Printf("  recovery in %d seconds\n", status.LockoutRecovery)
			}
		} else {
			fmt.Printf("  lockout:      clear (%d/%d failed auths)\n", status.LockoutCounter, status.MaxAuthFail)
		}
	}
	fmt.Println("")
}

func printKernel() {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return
	}

	fmt.Println("Kernel")
	fmt.Println("======")
	fmt.Printf("  %s %s\n", utsString(uts.Sysname), utsString(uts.Release))
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func utsString(f [65]byte) string {
	return strings.TrimRight(string(f[:]), "\x00")
}
