// Package fileutil writes exported documents to disk.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// DocumentName derives a file name for a transcript document from its title
// and format ("markdown" or "text").
func DocumentName(title, format string) string {
	base := SanitizeFileName(title)
	if base == "" || base == "." || base == ".." {
		base = "transcript"
	}
	ext := ".md"
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		ext = ".txt"
	}
	return base + ext
}

// WriteFileAtomic writes data to a temporary file beside path, verifies the
// written bytes by SHA256, then renames it over path. A failed write leaves
// any existing file untouched.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	written, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("verify written file: %w", err)
	}
	if len(written) != len(data) {
		return fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(data), len(written))
	}
	want := sha256.Sum256(data)
	got := sha256.Sum256(written)
	if !bytes.Equal(want[:], got[:]) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}

	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
