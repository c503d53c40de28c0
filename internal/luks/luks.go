// Package luks inspects LUKS headers. bulwark never unlocks or seals a
// device itself, it only verifies that the device handed to the sealing
// step actually is a LUKS2 volume before an irreversible toolchain run.
package luks

import (
	"errors"
	"fmt"
	"os"

	"github.com/anatol/luks.go"
)

// ErrNotLUKS indicates the device carries no LUKS header.
var ErrNotLUKS = errors.New("device has no LUKS header")

// Info describes a probed LUKS device.
type Info struct {
	Path    string
	UUID    string
	Version int
}

// Probe opens the device header and returns its identity. The check is
// read-only and safe to repeat.
func Probe(path string) (*Info, error) {
	if !isLUKS(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotLUKS)
	}

	dev, err := luks.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read LUKS header of %s: %w", path, err)
	}
	defer dev.Close()

	return &Info{
		Path:    path,
		UUID:    dev.UUID(),
		Version: dev.Version(),
	}, nil
}

// isLUKS checks if a device has a LUKS header.
func isLUKS(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// Read LUKS magic header
	magic := make([]byte, 6)
	n, err := f.Read(magic)
	if err != nil || n < 6 {
		return false
	}

	// LUKS magic is "LUKS\xba\xbe"
	return string(magic[:4]) == "LUKS"
}
