//go:build !windows

package log

import (
	"os"
	"path/filepath"
	"runtime"
)

// systemDir is used when the unit runs as a root service with no home.
const systemDir = "/var/log/hushlight"

func getDefaultDir() (string, error) {
	if runtime.GOOS == "linux" && os.Geteuid() == 0 {
		return systemDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "hushlight"), nil
	}
	state := os.Getenv("XDG_STATE_HOME")
	if state == "" {
		state = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(state, "hushlight", "logs"), nil
}
