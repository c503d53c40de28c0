// Package firmware reads UEFI secure boot state from efivarfs. The
// values are informational: the only authoritative signal for setup
// mode is whether the key enrollment command succeeds.
package firmware

import (
	"fmt"
	"os"
	"path/filepath"
)

// EfivarsDir is the efivarfs mount point. Overridable for tests.
var EfivarsDir = "/sys/firmware/efi/efivars"

// EFI global variable GUID.
const globalGUID = "8be4df61-93ca-11d2-aa0d-00e098032b8c"

// State holds the secure boot related firmware variables.
type State struct {
	// Supported is false on BIOS/legacy systems without efivarfs.
	Supported  bool
	SecureBoot bool
	SetupMode  bool
}

// ReadState reads the SecureBoot and SetupMode variables.
func ReadState() (*State, error) {
	if _, err := os.Stat(EfivarsDir); err != nil {
		return &State{Supported: false}, nil
	}

	sb, err := readBoolVar("SecureBoot")
	if err != nil {
		return nil, err
	}
	sm, err := readBoolVar("SetupMode")
	if err != nil {
		return nil, err
	}

	return &State{Supported: true, SecureBoot: sb, SetupMode: sm}, nil
}

// readBoolVar reads a single-byte EFI variable. The efivarfs format is
// a 4-byte attribute word followed by the payload.
func readBoolVar(name string) (bool, error) {
	path := filepath.Join(EfivarsDir, name+"-"+globalGUID)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) < 5 {
		return false, fmt.Errorf("efivar %s too short (%d bytes)", name, len(data))
	}

	return data[4] != 0, nil
}
