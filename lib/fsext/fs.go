// Package fsext wraps the afero file system used for documents, config and
// log files, so tests can swap in an in-memory implementation.
package fsext

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// Fs represents a file system
type Fs = afero.Fs

// NewOsFs returns the operating system file system.
func NewOsFs() Fs {
	return afero.NewOsFs()
}

// NewMemMapFs returns a Fs that is in memory
func NewMemMapFs() Fs {
	return afero.NewMemMapFs()
}

// NewReadOnlyFs returns a Fs wrapping the provided one and returning error on any not read operation.
func NewReadOnlyFs(fs Fs) Fs {
	return afero.NewReadOnlyFs(fs)
}

// ReadFile reads the whole file from the filesystem
func ReadFile(fs Fs, filename string) ([]byte, error) {
	return afero.ReadFile(fs, filename)
}

// WriteFile writes the provided data to the provided fs in the provided filename
func WriteFile(fs Fs, filename string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(fs, filename, data, perm)
}

// Exists checks if the provided path exists on the filesystem
func Exists(fs Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}

// Abs joins a relative path onto root and cleans the result. Absolute paths
// are only cleaned.
func Abs(root, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return filepath.Clean(path)
}
