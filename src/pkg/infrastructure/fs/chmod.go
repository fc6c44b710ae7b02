package fs

import "os"

// IsPosixPlatform reports whether binaries for the given target os need an
// executable bit.
func IsPosixPlatform(platform string) bool {
	return platform == "linux" || platform == "darwin"
}

// ChmodIfPosix marks file executable when the target platform cares about it.
func ChmodIfPosix(platform, file string, mode os.FileMode) error {
	if !IsPosixPlatform(platform) {
		return nil
	}
	return os.Chmod(file, mode)
}
