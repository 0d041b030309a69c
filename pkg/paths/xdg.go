// Package paths resolves where phlux keeps its files.
//
// Resolution order:
// 1. PHLUX_HOME (portable root) → $PHLUX_HOME/{config,data,state}
// 2. XDG env vars → $XDG_*_HOME/phlux
// 3. Platform defaults → ~/.config/phlux, ~/.local/share/phlux, ~/.local/state/phlux
package paths

import (
	"os"
	"path/filepath"
)

const appName = "phlux"

func home(portable, xdgVar string, fallback ...string) string {
	if root := os.Getenv("PHLUX_HOME"); root != "" {
		return filepath.Join(root, portable)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append([]string{homeDir}, append(fallback, appName)...)...)
	}
	return filepath.Join(os.TempDir(), appName, portable)
}

// ConfigDir holds the global phlux.yml.
func ConfigDir() string {
	return home("config", "XDG_CONFIG_HOME", ".config")
}

// DataDir holds saved scopes.
func DataDir() string {
	return home("data", "XDG_DATA_HOME", ".local", "share")
}

// StateDir holds logs.
func StateDir() string {
	return home("state", "XDG_STATE_HOME", ".local", "state")
}

// GlobalConfigFile is the user-wide configuration layer.
func GlobalConfigFile() string {
	return filepath.Join(ConfigDir(), "phlux.yml")
}

// ScopesDir is the default persistence directory.
func ScopesDir() string {
	return filepath.Join(DataDir(), "scopes")
}

// LogsDir is the default directory of the log file sink.
func LogsDir() string {
	return filepath.Join(StateDir(), "logs")
}
