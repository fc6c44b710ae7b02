package fs

import (
	"fmt"

	"github.com/kirsle/configdir"
)

const configFolderName = "jxl-release"

// ConfigDir returns the user's jxl-release config directory and ensures it exists.
func ConfigDir() (string, error) {
	dir := configdir.LocalConfig(configFolderName)
	if err := EnsureDir(dir, PermDirPrivate); err != nil {
		return "", fmt.Errorf("failed to create config dir %q: %w", dir, err)
	}
	return dir, nil
}
