// Package store persists install progress as a line-oriented KEY=VALUE
// file. The format is deliberately plain text so an operator can inspect
// and repair the record by hand after a failure that leaves the machine
// in a state where bulwark itself cannot run.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Recognized keys.
const (
	KeyPhase   = "INSTALL_PHASE"
	KeySealPIN = "SEAL_PIN"
)

// Store is a durable KEY=VALUE record at a fixed path. Every read
// re-parses the file so a fresh process after a reboot always sees
// exactly what is on disk.
type Store struct {
	path string
}

// New creates a store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureExists creates the backing file and its parent directory if
// missing. Safe to call repeatedly.
func (s *Store) EnsureExists() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.path, err)
	}
	return f.Close()
}

// Get returns the most recent value for key. An absent key is a
// legitimate state and reports ("", false, nil).
func (s *Store) Get(key string) (string, bool, error) {
	lines, err := s.readLines()
	if err != nil {
		return "", false, err
	}

	for _, line := range lines {
		if k, v, ok := splitRecord(line); ok && k == key {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Set upserts key=value: replaces the existing record in place,
// preserving all other records and their order, or appends when absent.
func (s *Store) Set(key, value string) error {
	lines, err := s.readLines()
	if err != nil {
		return err
	}

	replaced := false
	for i, line := range lines {
		if k, _, ok := splitRecord(line); ok && k == key {
			lines[i] = key + "=" + value
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, key+"="+value)
	}

	return s.writeLines(lines)
}

// Phase reads the current install phase. An absent key means the
// workflow has not started yet (phase 0). A present but non-numeric
// value means the record was damaged and needs manual repair.
func (s *Store) Phase() (int, error) {
	v, ok, err := s.Get(KeyPhase)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s holds %s=%q, expected an integer: repair the file by hand", s.path, KeyPhase, v)
	}
	return n, nil
}

// SetPhase persists the install phase. Phases only ever move forward
// under program control; moving backward requires editing the store
// file directly.
func (s *Store) SetPhase(n int) error {
	current, err := s.Phase()
	if err != nil {
		return err
	}
	if n < current {
		return fmt.Errorf("refusing to move phase backward (%d -> %d): edit %s directly to redo a phase", current, n, s.path)
	}
	return s.Set(KeyPhase, strconv.Itoa(n))
}

// readLines loads the record, dropping a single trailing empty line
// produced by the final newline.
func (s *Store) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

func (s *Store) writeLines(lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	// Write-then-rename so a crash mid-write cannot leave a truncated
	// record behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// splitRecord parses a KEY=VALUE line. Lines without '=' (comments,
// blanks) are preserved verbatim by Set but never match a key.
func splitRecord(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 1 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}
