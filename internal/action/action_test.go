package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeExitStatusSuccess(t *testing.T) {
	r := &ExecRunner{}

	out := r.Invoke(Spec{
		Name: "noop",
		Path: "/bin/sh",
		Args: []string{"-c", "exit 0"},
	})

	assert.Equal(t, StatusOK, out.Status)
}

func TestInvokeExitStatusFailure(t *testing.T) {
	r := &ExecRunner{}

	out := r.Invoke(Spec{
		Name: "boom",
		Path: "/bin/sh",
		Args: []string{"-c", "echo bad thing happened >&2; exit 3"},
	})

	require.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "boom")
	assert.Contains(t, out.Reason, "bad thing happened")
}

func TestInvokeMissingBinaryFails(t *testing.T) {
	r := &ExecRunner{}

	out := r.Invoke(Spec{
		Name: "ghost",
		Path: "/nonexistent/bulwark-test-binary",
	})

	assert.Equal(t, StatusFailed, out.Status)
}

func TestInvokeOutputPatternMatch(t *testing.T) {
	r := &ExecRunner{}

	out := r.Invoke(Spec{
		Name:      "pkgcheck",
		Path:      "/bin/sh",
		Args:      []string{"-c", "echo install ok installed"},
		Interpret: InterpretOutputPattern,
		Pattern:   "install ok installed",
	})

	assert.Equal(t, StatusOK, out.Status)
}

func TestInvokeOutputPatternMatchOverridesExitCode(t *testing.T) {
	r := &ExecRunner{}

	out := r.Invoke(Spec{
		Name:      "pkgcheck",
		Path:      "/bin/sh",
		Args:      []string{"-c", "echo install ok installed; exit 1"},
		Interpret: InterpretOutputPattern,
		Pattern:   "install ok installed",
	})

	assert.Equal(t, StatusOK, out.Status)
}

func TestInvokeOutputPatternAbsent(t *testing.T) {
	r := &ExecRunner{}

	out := r.Invoke(Spec{
		Name:      "pkgcheck",
		Path:      "/bin/sh",
		Args:      []string{"-c", "echo deinstall ok config-files"},
		Interpret: InterpretOutputPattern,
		Pattern:   "install ok installed",
	})

	assert.Equal(t, StatusFailed, out.Status)
}

func TestInvokeAskNeverRunsCommand(t *testing.T) {
	r := &ExecRunner{}

	out := r.Invoke(Spec{
		Name:      "gate",
		Path:      "/nonexistent/never-executed",
		Interpret: InterpretAsk,
		Prompt:    "Really proceed? (y/n): ",
	})

	require.Equal(t, StatusNeedsConfirm, out.Status)
	assert.Equal(t, "Really proceed? (y/n): ", out.Prompt)
}

func TestFailedFormatsReason(t *testing.T) {
	out := Failed("step %s exited %d", "seal", 2)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "step seal exited 2", out.Reason)
}

func TestSpecCommand(t *testing.T) {
	s := Spec{Path: "/usr/sbin/safeboot", Args: []string{"key-init", "-s", "/CN=test/"}}
	assert.Equal(t, "/usr/sbin/safeboot key-init -s /CN=test/", s.Command())
}
