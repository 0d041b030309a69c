package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovetools/phlux/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerCachesPerComponent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a := NewLogger("test-component")
	b := NewLogger("test-component")
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Equal(t, "test-component", a.Data["component"])
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "scope created",
				Data:    logrus.Fields{"component": "store", "scope": "abc"},
			},
			want: []string{"[INFO]", "store", "scope created", "scope=abc"},
		},
		{
			name:   "simple format",
			config: FormatConfig{DisableTimestamp: true, DisableComponent: true},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "stale completion",
				Data:    logrus.Fields{"component": "store"},
			},
			want:    []string{"[WARN]", "stale completion"},
			notWant: []string{"store"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, string(out), w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, string(out), nw)
			}
			assert.True(t, strings.HasSuffix(string(out), "\n"))
		})
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	f := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}}
	out, err := f.Format(&logrus.Entry{
		Level:   logrus.DebugLevel,
		Message: "m",
		Data:    logrus.Fields{"task": 2, "scope": "k", "attempt": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "[DEBUG] m attempt=1 scope=k task=2\n", string(out))
}

func TestResolveLevel(t *testing.T) {
	t.Setenv("PHLUX_LOG_LEVEL", "")
	assert.Equal(t, logrus.InfoLevel, resolveLevel(Config{}))
	assert.Equal(t, logrus.DebugLevel, resolveLevel(Config{Level: "debug"}))
	assert.Equal(t, logrus.InfoLevel, resolveLevel(Config{Level: "loud"}))

	t.Setenv("PHLUX_LOG_LEVEL", "error")
	assert.Equal(t, logrus.ErrorLevel, resolveLevel(Config{Level: "debug"}), "env wins over config")
}

func TestToStderr(t *testing.T) {
	assert.True(t, toStderr("always", logrus.InfoLevel, true))
	assert.False(t, toStderr("never", logrus.DebugLevel, false))
	assert.False(t, toStderr("auto", logrus.InfoLevel, true))
	assert.True(t, toStderr("", logrus.InfoLevel, false))
	assert.True(t, toStderr("auto", logrus.DebugLevel, true))
}

func TestFileSink(t *testing.T) {
	t.Setenv("PHLUX_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "logs", "phlux.log")

	entry := newLogger("sink", Config{
		File:   FileSinkConfig{Enabled: true, Path: path},
		Format: FormatConfig{StructuredToStderr: "never"},
	}, true)
	entry.WithField("scope", "k").Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "scope=k")
}

func TestGlobalOutputRedirect(t *testing.T) {
	t.Setenv("PHLUX_LOG_LEVEL", "")
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	defer SetGlobalOutput(os.Stderr)

	entry := newLogger("redirect", Config{Format: FormatConfig{Preset: "json", StructuredToStderr: "always"}}, true)
	entry.Info("routed")
	assert.Contains(t, buf.String(), `"msg":"routed"`)
}

func TestApplyUpdatesCachedLoggers(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PHLUX_LOG_LEVEL", "")

	entry := NewLogger("apply-test")
	cfg := config.Default()
	cfg.Extensions = map[string]interface{}{"logging": map[string]interface{}{"level": "trace"}}

	require.NoError(t, Apply(cfg))
	assert.Equal(t, logrus.TraceLevel, entry.Logger.GetLevel())

	SetLevel(logrus.InfoLevel)
	assert.Equal(t, logrus.InfoLevel, entry.Logger.GetLevel())
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)
	p.Success("saved")
	p.Field("scope", "abc")
	p.Code("count: 1\n")

	out := buf.String()
	assert.Contains(t, out, "saved")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "count: 1")
}
