// Package backup snapshots EFI boot entry directories into a
// zstd-compressed cpio archive before they are removed. This is a
// file-level safety net only: firmware state changed outside the
// program cannot be restored from it.
package backup

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zstd"
)

// Snapshot archives the given directories under destDir and returns
// the archive path. Directories that do not exist are skipped, so the
// call is safe to repeat after a partial phase. Returns "" when none
// of the directories exist.
func Snapshot(dirs []string, destDir string) (string, error) {
	var present []string
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			present = append(present, dir)
		}
	}
	if len(present) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	name := fmt.Sprintf("efi-backup-%s.cpio.zst", time.Now().Format("20060102-150405"))
	path := filepath.Join(destDir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", fmt.Errorf("zstd encoder error: %w", err)
	}

	archive := cpio.NewWriter(enc)
	for _, dir := range present {
		if err := addTree(archive, dir); err != nil {
			archive.Close()
			enc.Close()
			os.Remove(path)
			return "", err
		}
	}

	if err := archive.Close(); err != nil {
		enc.Close()
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to flush archive: %w", err)
	}
	return path, nil
}

// addTree walks dir and writes every entry into the archive. Archive
// member names keep the absolute on-disk path minus the leading slash.
func addTree(archive *cpio.Writer, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := filepath.ToSlash(path)
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return writeHeader(archive, &cpio.Header{
				Name: name,
				Mode: cpio.TypeDir | cpio.FileMode(info.Mode().Perm()),
			})
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			hdr := &cpio.Header{
				Name:     name,
				Mode:     cpio.TypeSymlink | 0777,
				Size:     int64(len(target)),
				Linkname: target,
			}
			if err := writeHeader(archive, hdr); err != nil {
				return err
			}
			_, err = archive.Write([]byte(target))
			return err
		case info.Mode().IsRegular():
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			hdr := &cpio.Header{
				Name: name,
				Mode: cpio.TypeReg | cpio.FileMode(info.Mode().Perm()),
				Size: int64(len(content)),
			}
			if err := writeHeader(archive, hdr); err != nil {
				return err
			}
			_, err = archive.Write(content)
			return err
		default:
			// Sockets, fifos and device nodes do not belong on an ESP.
			return nil
		}
	})
}

func writeHeader(archive *cpio.Writer, hdr *cpio.Header) error {
	if err := archive.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to archive %s: %w", hdr.Name, err)
	}
	return nil
}

// List returns the member names of a snapshot archive.
func List(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder error: %w", err)
	}
	defer dec.Close()

	var names []string
	r := cpio.NewReader(dec)
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}
