package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortableHome(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PHLUX_HOME", root)
	t.Setenv("XDG_CONFIG_HOME", "/ignored")

	assert.Equal(t, filepath.Join(root, "config", "phlux.yml"), GlobalConfigFile())
	assert.Equal(t, filepath.Join(root, "data", "scopes"), ScopesDir())
	assert.Equal(t, filepath.Join(root, "state", "logs"), LogsDir())
}

func TestXDGHome(t *testing.T) {
	t.Setenv("PHLUX_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")

	assert.Equal(t, filepath.Join("/xdg/config", "phlux"), ConfigDir())
	assert.Equal(t, filepath.Join("/xdg/data", "phlux", "scopes"), ScopesDir())
	assert.Equal(t, filepath.Join("/xdg/state", "phlux", "logs"), LogsDir())
}

func TestPlatformDefaults(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("PHLUX_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")

	assert.Equal(t, filepath.Join(homeDir, ".config", "phlux"), ConfigDir())
	assert.Equal(t, filepath.Join(homeDir, ".local", "share", "phlux"), DataDir())
	assert.Equal(t, filepath.Join(homeDir, ".local", "state", "phlux"), StateDir())
}
