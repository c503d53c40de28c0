package wizard

import (
	"errors"
	"fmt"
)

// ErrNotSuperuser indicates the process lacks the required elevation.
var ErrNotSuperuser = errors.New("bulwark must run with superuser privileges (effective group id 0)")

// ErrVerityReserved indicates the store points at the reserved
// integrity verification phase, which is not implemented.
var ErrVerityReserved = errors.New("integrity verification setup (phase 4) is reserved and not implemented")

// ProvisionError indicates the toolchain package could not be
// installed. The persisted phase is left at 0 so a rerun retries
// provisioning from scratch.
type ProvisionError struct {
	Reason string
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning failed: %s; resolve the condition and rerun bulwark install", e.Reason)
}

// ToolchainError indicates an external signing, sealing or key
// generation step reported failure. Reruns restart the whole phase
// from its first action, never mid-phase.
type ToolchainError struct {
	Step   string
	Reason string
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("toolchain step %s failed: %s; resolve the condition and rerun bulwark install, the current phase restarts from its first action", e.Step, e.Reason)
}

// RebootError indicates the reboot request did not take effect and the
// operator declined the manual fallback.
type RebootError struct {
	Reason string
}

func (e *RebootError) Error() string {
	return fmt.Sprintf("reboot not performed: %s; reboot the machine manually and rerun bulwark install", e.Reason)
}
