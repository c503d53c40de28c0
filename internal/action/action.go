// Package action wraps externally executed provisioning steps behind a
// uniform invocation contract. Every step is either non-idempotent (key
// generation, signing, sealing) or destructive (file removal, reboot),
// so the runner never retries on its own.
package action

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Status is the result class of an external action.
type Status int

const (
	// StatusOK means the action completed and its result checks out.
	StatusOK Status = iota
	// StatusFailed means the action reported failure.
	StatusFailed
	// StatusNeedsConfirm means the action cannot be verified by the
	// program and a human must gate the next irreversible step.
	StatusNeedsConfirm
)

// Outcome is the tri-state result of invoking a Spec. There is no
// partial or indeterminate state: an action either completed with a
// checkable result or requires a yes/no human gate.
type Outcome struct {
	Status Status
	Reason string // set for StatusFailed
	Prompt string // set for StatusNeedsConfirm
}

// OK reports a successful outcome.
func OK() Outcome {
	return Outcome{Status: StatusOK}
}

// Failed reports a failed outcome with an operator-facing reason.
func Failed(format string, args ...any) Outcome {
	return Outcome{Status: StatusFailed, Reason: fmt.Sprintf(format, args...)}
}

// NeedsConfirm reports that a human must decide before proceeding.
func NeedsConfirm(prompt string) Outcome {
	return Outcome{Status: StatusNeedsConfirm, Prompt: prompt}
}

// Interpret selects how a Spec's result is judged.
type Interpret int

const (
	// InterpretExitStatus treats a zero exit code as success.
	InterpretExitStatus Interpret = iota
	// InterpretOutputPattern treats the presence of Pattern in the
	// combined output as success, regardless of exit code.
	InterpretOutputPattern
	// InterpretAsk always defers to a human gate; the command (if any)
	// is not run by the adapter.
	InterpretAsk
)

// Spec names an external program, its arguments, and how to interpret
// the result.
type Spec struct {
	Name string // step name used in messages, e.g. "key-init"
	Path string
	Args []string

	Interpret Interpret
	Pattern   string // for InterpretOutputPattern
	Prompt    string // for InterpretAsk

	// Interactive wires the command to the controlling terminal. Used
	// for toolchain steps that prompt for passphrases or PINs.
	Interactive bool
}

// Command returns the full command line for messages.
func (s Spec) Command() string {
	return strings.Join(append([]string{s.Path}, s.Args...), " ")
}

// Runner invokes external actions.
type Runner interface {
	Invoke(spec Spec) Outcome
}

// Prompter asks the operator for input at confirmation gates. Confirm
// treats only the literal answer "y" as affirmative; everything else
// is a refusal.
type Prompter interface {
	Confirm(prompt string) bool
	Ask(prompt string) string
}

// ExecRunner runs specs with os/exec.
type ExecRunner struct {
	// Verbose streams non-interactive command output to the console.
	Verbose bool
}

// cmdOutput returns the stdout/stderr writers for a non-interactive
// command based on the Verbose setting, teeing into buf for error
// reporting either way.
func (r *ExecRunner) cmdOutput(buf *bytes.Buffer) (io.Writer, io.Writer) {
	if r.Verbose {
		return io.MultiWriter(os.Stdout, buf), io.MultiWriter(os.Stderr, buf)
	}
	return buf, buf
}

// Invoke runs the spec and interprets its result. It never retries.
func (r *ExecRunner) Invoke(spec Spec) Outcome {
	if spec.Interpret == InterpretAsk {
		return NeedsConfirm(spec.Prompt)
	}

	cmd := exec.Command(spec.Path, spec.Args...)

	var buf bytes.Buffer
	if spec.Interactive {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = io.MultiWriter(os.Stderr, &buf)
	} else {
		cmd.Stdout, cmd.Stderr = r.cmdOutput(&buf)
	}

	runErr := cmd.Run()

	switch spec.Interpret {
	case InterpretOutputPattern:
		if strings.Contains(buf.String(), spec.Pattern) {
			return OK()
		}
		if runErr != nil {
			return Failed("%s: %v%s", spec.Name, runErr, tailOf(buf.String()))
		}
		return Failed("%s: output did not report %q", spec.Name, spec.Pattern)
	default:
		if runErr != nil {
			return Failed("%s: %v%s", spec.Name, runErr, tailOf(buf.String()))
		}
		return OK()
	}
}

// tailOf formats the last lines of captured output for a failure
// reason, so the operator sees what the command said without rerunning
// it in verbose mode.
func tailOf(raw string) string {
	out := strings.TrimSpace(raw)
	if out == "" {
		return ""
	}

	lines := strings.Split(out, "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return "\n  " + strings.Join(lines, "\n  ")
}
