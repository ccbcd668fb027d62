package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.crosseverything/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".crosseverything", "logs")
	}
	return filepath.Join(home, ".crosseverything", "logs")
}

// DefaultLogPath returns the default core log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "core.log")
}
