package firmware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVar(t *testing.T, dir, name string, value byte) {
	t.Helper()
	// efivarfs prefixes the payload with a 4-byte attribute word.
	data := []byte{0x07, 0x00, 0x00, 0x00, value}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+"-"+globalGUID), data, 0644))
}

func TestReadStateUnsupported(t *testing.T) {
	old := EfivarsDir
	EfivarsDir = filepath.Join(t.TempDir(), "missing")
	defer func() { EfivarsDir = old }()

	state, err := ReadState()
	require.NoError(t, err)
	assert.False(t, state.Supported)
}

func TestReadState(t *testing.T) {
	old := EfivarsDir
	EfivarsDir = t.TempDir()
	defer func() { EfivarsDir = old }()

	writeVar(t, EfivarsDir, "SecureBoot", 1)
	writeVar(t, EfivarsDir, "SetupMode", 0)

	state, err := ReadState()
	require.NoError(t, err)
	assert.True(t, state.Supported)
	assert.True(t, state.SecureBoot)
	assert.False(t, state.SetupMode)
}

func TestReadStateMissingVariables(t *testing.T) {
	old := EfivarsDir
	EfivarsDir = t.TempDir()
	defer func() { EfivarsDir = old }()

	state, err := ReadState()
	require.NoError(t, err)
	assert.True(t, state.Supported)
	assert.False(t, state.SecureBoot)
	assert.False(t, state.SetupMode)
}

func TestReadStateTruncatedVariable(t *testing.T) {
	old := EfivarsDir
	EfivarsDir = t.TempDir()
	defer func() { EfivarsDir = old }()

	require.NoError(t, os.WriteFile(filepath.Join(EfivarsDir, "SecureBoot-"+globalGUID), []byte{1}, 0644))

	_, err := ReadState()
	require.Error(t, err)
}
