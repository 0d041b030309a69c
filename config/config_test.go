package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the global config layer at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("XDG_DATA_HOME", filepath.Join(xdg, "data"))
	return xdg
}

func TestLoadFromBytesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadFromBytes([]byte("version: \"1.0\"\n"), false)
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.True(t, cfg.MetricsEnabled())
	assert.Equal(t, DefaultRunner, cfg.Store.Runner)
	assert.Equal(t, DefaultBackend, cfg.Persistence.Backend)
	assert.Equal(t, DefaultFormat, cfg.Persistence.Format)
	assert.Contains(t, cfg.Persistence.Dir, filepath.Join("phlux", "scopes"))
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.ResumeGrace())
}

func TestLoadFromBytesTOML(t *testing.T) {
	isolate(t)

	data := `
version = "1.0"

[persistence]
backend = "pebble"
format = "json"

[logging]
level = "debug"
`
	cfg, err := LoadFromBytes([]byte(data), true)
	require.NoError(t, err)
	assert.Equal(t, "pebble", cfg.Persistence.Backend)
	assert.Equal(t, "json", cfg.Persistence.Format)

	var logCfg struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
}

func TestLoadFromBytesEnvExpansion(t *testing.T) {
	isolate(t)
	t.Setenv("PHLUX_TEST_ADDR", "0.0.0.0:9999")

	data := `
server:
  addr: ${PHLUX_TEST_ADDR}
persistence:
  dir: ${PHLUX_TEST_UNSET:-/tmp/fallback}
`
	cfg, err := LoadFromBytes([]byte(data), false)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Addr)
	assert.Equal(t, "/tmp/fallback", cfg.Persistence.Dir)
}

func TestLoadFromBytesRejectsInvalid(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		data string
	}{
		{name: "unknown backend", data: "persistence:\n  backend: redis\n"},
		{name: "unknown runner", data: "store:\n  runner: threads\n"},
		{name: "bad duration", data: "server:\n  resume_grace: soon\n"},
		{name: "negative duration", data: "server:\n  resume_grace: -5s\n"},
		{name: "malformed", data: "store: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.data), false)
			require.Error(t, err)
			code := errors.GetCode(err)
			assert.Contains(t, []errors.ErrorCode{errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation}, code)
		})
	}
}

func TestFindConfigFileWalksUp(t *testing.T) {
	isolate(t)

	root := t.TempDir()
	testutil.WriteFile(t, root, "phlux.yml", "version: \"1.0\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	path, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "phlux.yml"), path)

	_, err = FindConfigFile(t.TempDir())
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestLoadFromMergesGlobalLayer(t *testing.T) {
	xdg := isolate(t)
	testutil.WriteFile(t, filepath.Join(xdg, "phlux"), "phlux.yml", `
persistence:
  backend: pebble
  dir: /global/dir
logging:
  level: warn
  report_caller: true
`)

	project := t.TempDir()
	testutil.WriteFile(t, project, "phlux.yml", `
persistence:
  dir: /project/dir
logging:
  level: debug
`)

	cfg, err := LoadFrom(project)
	require.NoError(t, err)
	assert.Equal(t, "pebble", cfg.Persistence.Backend, "global value survives")
	assert.Equal(t, "/project/dir", cfg.Persistence.Dir, "project overrides global")

	logging, ok := cfg.Extensions["logging"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "debug", logging["level"])
	assert.Equal(t, true, logging["report_caller"])
}

func TestLoadOrDefault(t *testing.T) {
	isolate(t)
	testutil.Chdir(t, t.TempDir())

	cfg, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestUnmarshalExtensionMissingKey(t *testing.T) {
	cfg := Default()
	var target struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &target))
	assert.Empty(t, target.Level)
}

func TestGenerateSchemaValidates(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"persistence"`)
	assert.Contains(t, string(data), `"resume_grace"`)

	v, err := NewSchemaValidator()
	require.NoError(t, err)
	assert.NoError(t, v.Validate(Default()))

	assert.Error(t, v.Validate(map[string]interface{}{
		"version":     "1.0",
		"persistence": map[string]interface{}{"backend": "redis"},
	}))
	assert.Error(t, v.Validate(map[string]interface{}{"version": "1.0", "bogus": 1}))
}

func TestWatcherReloads(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "phlux.yml", "server:\n  addr: 127.0.0.1:1\n")

	reloads := &testutil.Recorder[*Config]{}
	w, err := NewWatcher(path, 20*time.Millisecond, reloads.Record, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	testutil.WriteFile(t, dir, "other.yml", "ignored: true\n")
	testutil.WriteFile(t, dir, "phlux.yml", "server:\n  addr: 127.0.0.1:2\n")

	reloads.WaitLen(t, 1, 2*time.Second)
	last, _ := reloads.Last()
	assert.Equal(t, "127.0.0.1:2", last.Server.Addr)
}
