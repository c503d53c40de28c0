// Package wizard sequences the multi-reboot secure boot provisioning
// workflow. The controller is a pure function of the persisted phase
// store plus the live machine state: every run re-reads the store,
// executes the current phase's actions in order, and either advances
// the phase, hands control to a reboot, or halts with guidance. A run
// interrupted by a crash or reboot restarts the whole phase from its
// first action, so every action must be safe to re-check and repeat.
package wizard

import (
	"fmt"
	"io"
	"os"

	"github.com/zaolin/bulwark/internal/action"
	"github.com/zaolin/bulwark/internal/backup"
	"github.com/zaolin/bulwark/internal/config"
	"github.com/zaolin/bulwark/internal/luks"
	"github.com/zaolin/bulwark/internal/prompt"
	"github.com/zaolin/bulwark/internal/store"
	"github.com/zaolin/bulwark/internal/toolchain"
)

// Install phases. Phases are strictly ordered and only ever move
// forward under program control.
const (
	PhaseProvision = 0
	PhaseKeyInit   = 1
	PhaseSeal      = 2
	PhaseSignBoot  = 3
	PhaseVerity    = 4 // reserved, never reached
)

var phaseNames = map[int]string{
	PhaseProvision: "provision and configure",
	PhaseKeyInit:   "generate and enroll signing keys",
	PhaseSeal:      "seal storage and sign recovery",
	PhaseSignBoot:  "sign primary boot image",
	PhaseVerity:    "integrity verification (reserved)",
}

// PhaseName returns a short description of an install phase.
func PhaseName(n int) string {
	if name, ok := phaseNames[n]; ok {
		return name
	}
	return "unknown"
}

// Wizard drives the provisioning workflow.
type Wizard struct {
	cfg      *config.Config
	store    *store.Store
	tools    *toolchain.Toolchain
	runner   action.Runner
	prompter action.Prompter
	out      io.Writer
}

// New creates a wizard over the given store and collaborators.
func New(cfg *config.Config, st *store.Store, tools *toolchain.Toolchain, runner action.Runner, prompter action.Prompter, out io.Writer) *Wizard {
	if out == nil {
		out = os.Stdout
	}
	return &Wizard{
		cfg:      cfg,
		store:    st,
		tools:    tools,
		runner:   runner,
		prompter: prompter,
		out:      out,
	}
}

// Run executes phases until the workflow halts or yields to a reboot.
// A nil return means this run segment is complete and the machine is
// expected to reboot; resumption is a fresh process re-reading the
// store.
func (w *Wizard) Run() error {
	for {
		cont, err := w.Step()
		if err != nil || !cont {
			return err
		}
	}
}

// Step executes exactly the phase the store currently reports. It
// returns true when the next phase can run within the same process,
// false when the run segment ends here (reboot pending or workflow
// halted via the returned error).
func (w *Wizard) Step() (bool, error) {
	phase, err := w.store.Phase()
	if err != nil {
		return false, err
	}

	w.printf("phase %d: %s", phase, PhaseName(phase))

	switch phase {
	case PhaseProvision:
		return w.provisionPhase()
	case PhaseKeyInit:
		return w.keyInitPhase()
	case PhaseSeal:
		return w.sealPhase()
	case PhaseSignBoot:
		return w.signBootPhase()
	case PhaseVerity:
		return false, ErrVerityReserved
	default:
		return false, fmt.Errorf("unknown install phase %d in %s: repair the file by hand", phase, w.store.Path())
	}
}

// provisionPhase installs the toolchain and captures the sealing
// configuration. Skipped entirely when the toolchain is already
// present.
func (w *Wizard) provisionPhase() (bool, error) {
	if res := w.runner.Invoke(w.tools.InstalledCheck()); res.Status == action.StatusOK {
		w.printf("toolchain package %q already installed, skipping provisioning", w.tools.Package)
		if err := w.store.SetPhase(PhaseKeyInit); err != nil {
			return false, err
		}
		return true, nil
	}

	w.printf("installing toolchain package %q", w.tools.Package)
	if res := w.runner.Invoke(w.tools.Provision()); res.Status != action.StatusOK {
		return false, &ProvisionError{Reason: res.Reason}
	}

	// Ambiguous input is never rejected here, only defaulted: stopping
	// the workflow over a typo would be worse than the safe default.
	sealPIN := "1"
	switch ans := w.prompter.Ask("Protect the sealed disk encryption key with a PIN? (y/n): "); ans {
	case "y":
	case "n":
		sealPIN = "0"
	default:
		w.warnf("unrecognized answer %q, defaulting to PIN protection", ans)
	}

	if err := w.store.Set(store.KeySealPIN, sealPIN); err != nil {
		return false, err
	}
	if err := w.store.SetPhase(PhaseKeyInit); err != nil {
		return false, err
	}
	return true, nil
}

// keyInitPhase generates the signing keys, enrolls them into UEFI,
// clears the stale boot entries and signs the recovery image, then
// reboots into the recovery environment.
func (w *Wizard) keyInitPhase() (bool, error) {
	// Key generation must not repeat after a mid-phase restart: a second
	// key-init would replace material that may already be enrolled.
	if w.tools.KeysExist() {
		w.printf("signing keys already present at %s, skipping key generation", w.tools.KeyFile)
	} else if res := w.runner.Invoke(w.tools.KeyInit()); res.Status != action.StatusOK {
		return false, &ToolchainError{Step: "key-init", Reason: res.Reason}
	}

	// Enrollment fails unless the firmware is in setup mode, which only
	// the operator can change.
	if res := w.runner.Invoke(w.tools.SignUEFIKeys()); res.Status != action.StatusOK {
		return w.setupModeGate("uefi-sign-keys", res.Reason)
	}

	// The ESP is usually too small to hold the old images alongside the
	// newly signed ones; recovery signing fails for lack of space unless
	// the stale entries go first.
	if err := w.clearBootEntries(); err != nil {
		return w.setupModeGate("clear-boot-entries", err.Error())
	}

	if res := w.runner.Invoke(w.tools.SignRecovery()); res.Status != action.StatusOK {
		return false, &ToolchainError{Step: "recovery-sign", Reason: res.Reason}
	}

	// Persist before the reboot so resumption lands in the seal phase.
	if err := w.store.SetPhase(PhaseSeal); err != nil {
		return false, err
	}
	w.printf("rebooting into the recovery environment to seal storage")
	return false, w.requestReboot(w.tools.RebootRecovery(),
		"Select the recovery entry from the firmware boot menu to continue.")
}

// sealPhase runs inside the recovery environment: seal the disk
// encryption key, re-sign the recovery image, reboot.
func (w *Wizard) sealPhase() (bool, error) {
	if w.cfg.LUKSDevice != "" {
		info, err := luks.Probe(w.cfg.LUKSDevice)
		if err != nil {
			return false, &ToolchainError{Step: "luks-seal", Reason: err.Error()}
		}
		if info.Version != 2 {
			return false, &ToolchainError{
				Step:   "luks-seal",
				Reason: fmt.Sprintf("%s is LUKS%d, sealing requires LUKS2", info.Path, info.Version),
			}
		}
		w.printf("sealing %s (UUID %s)", info.Path, info.UUID)
	}

	withPIN := true
	if v, ok, err := w.store.Get(store.KeySealPIN); err != nil {
		return false, err
	} else if ok && v == "0" {
		withPIN = false
	}

	if res := w.runner.Invoke(w.tools.SealStorage(withPIN)); res.Status != action.StatusOK {
		return false, &ToolchainError{Step: "luks-seal", Reason: res.Reason}
	}
	if res := w.runner.Invoke(w.tools.SignRecovery()); res.Status != action.StatusOK {
		return false, &ToolchainError{Step: "recovery-sign", Reason: res.Reason}
	}

	if err := w.store.SetPhase(PhaseSignBoot); err != nil {
		return false, err
	}
	w.printf("storage sealed, rebooting")
	return false, w.requestReboot(w.tools.Reboot(),
		"Reboot the machine manually to continue.")
}

// signBootPhase signs the primary boot image and reboots into the
// fully signed system. No further phase is recorded.
func (w *Wizard) signBootPhase() (bool, error) {
	if res := w.runner.Invoke(w.tools.SignLinux()); res.Status != action.StatusOK {
		return false, &ToolchainError{Step: "linux-sign", Reason: res.Reason}
	}

	w.printf("secure boot provisioning complete, rebooting into the signed system")
	return false, w.requestReboot(w.tools.Reboot(),
		"Reboot the machine manually to boot the signed system.")
}

// setupModeGate handles the two failures recoverable through a
// firmware reset: the operator confirms a reboot into firmware setup,
// enables secure boot setup mode there, and the phase re-runs from its
// first action on the next invocation. Declining halts; the persisted
// phase is unchanged.
func (w *Wizard) setupModeGate(step, reason string) (bool, error) {
	w.errorf("%s failed: %s", step, reason)
	w.printf("the firmware is likely not in secure boot setup mode;")
	w.printf("setup mode must be enabled in the firmware security settings")

	if !w.prompter.Confirm("Reboot into firmware setup now? (y/n): ") {
		return false, &ToolchainError{Step: step, Reason: reason + " (firmware setup reboot declined)"}
	}
	return false, w.requestReboot(w.tools.RebootFirmwareSetup(),
		"Enter firmware setup manually (usually F2 or Del during boot) and enable secure boot setup mode.")
}

// clearBootEntries snapshots and removes the stale EFI boot entry
// directories. Both halves are idempotent: missing directories are
// skipped by the snapshot and ignored by RemoveAll.
func (w *Wizard) clearBootEntries() error {
	archive, err := backup.Snapshot(w.cfg.EFIDirs, w.cfg.BackupDir)
	if err != nil {
		return fmt.Errorf("failed to back up boot entries: %w", err)
	}
	if archive != "" {
		w.printf("boot entries backed up to %s", archive)
	}

	for _, dir := range w.cfg.EFIDirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	return nil
}

// requestReboot invokes the reboot action. On success the process is
// about to die with the machine, so returning nil ends the run
// segment cleanly. When the mechanism fails, the operator is walked
// through a manual reboot instead; declining halts with the phase
// already persisted.
func (w *Wizard) requestReboot(spec action.Spec, manual string) error {
	res := w.runner.Invoke(spec)
	switch res.Status {
	case action.StatusOK:
		return nil
	case action.StatusNeedsConfirm:
		if w.prompter.Confirm(res.Prompt) {
			return nil
		}
		return &RebootError{Reason: "confirmation declined"}
	default:
		w.errorf("%s failed: %s", spec.Name, res.Reason)
		w.printf("%s", manual)
		if w.prompter.Confirm("Proceed with a manual reboot? (y/n): ") {
			return nil
		}
		return &RebootError{Reason: res.Reason}
	}
}

func (w *Wizard) printf(format string, args ...any) {
	fmt.Fprintf(w.out, "bulwark: "+format+"\n", args...)
}

func (w *Wizard) warnf(format string, args ...any) {
	fmt.Fprintln(w.out, prompt.WarnStyle.Render(fmt.Sprintf("bulwark: "+format, args...)))
}

func (w *Wizard) errorf(format string, args ...any) {
	fmt.Fprintln(w.out, prompt.ErrorStyle.Render(fmt.Sprintf("bulwark: "+format, args...)))
}
