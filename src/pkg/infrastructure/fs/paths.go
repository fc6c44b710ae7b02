package fs

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// Abs expands a leading ~ and returns the absolute form of path.
func Abs(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// Resolve joins path onto base unless path is already absolute or home-relative.
func Resolve(base, path string) string {
	if path == "" {
		return ""
	}
	expanded, err := homedir.Expand(path)
	if err == nil {
		path = expanded
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// Exists reports whether path exists. Errors other than not-exist count as existing.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
