package fs

import (
	"os"
	"path/filepath"
)

func EnsureDir(dir string, perm os.FileMode) error {
	return os.MkdirAll(dir, perm)
}

func EnsureDirForFile(path string, perm os.FileMode) error {
	return EnsureDir(filepath.Dir(path), perm)
}

// ResetDir removes dir and everything in it, then creates it again empty.
func ResetDir(dir string, perm os.FileMode) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return EnsureDir(dir, perm)
}

// WithTempDir creates a scratch directory, passes it to fn and removes it
// afterwards whether or not fn succeeded.
func WithTempDir(pattern string, fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return err
	}
	defer func() {
		if errRemove := os.RemoveAll(dir); errRemove != nil && err == nil {
			err = errRemove
		}
	}()
	return fn(dir)
}
