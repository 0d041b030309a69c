package profiling

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilerWritesProfiles(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetOutput(io.Discard)
	p := NewCobraProfiler(logrus.NewEntry(logger))

	ran := false
	root := &cobra.Command{Use: "root"}
	root.AddCommand(&cobra.Command{
		Use: "work",
		Run: func(cmd *cobra.Command, args []string) { ran = true },
	})
	p.Attach(root)

	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")
	root.SetArgs([]string{"work", "--cpu-profile", cpu, "--mem-profile", mem, "--timing"})
	require.NoError(t, root.Execute())
	assert.True(t, ran)

	for _, path := range []string{cpu, mem} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Command finished")
}

func TestProfilerBadPath(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := NewCobraProfiler(logrus.NewEntry(logger))
	root := &cobra.Command{Use: "root", Run: func(*cobra.Command, []string) {}}
	p.Attach(root)

	root.SetArgs([]string{"--cpu-profile", filepath.Join(t.TempDir(), "missing", "cpu.pprof")})
	root.SilenceUsage = true
	root.SilenceErrors = true
	assert.Error(t, root.Execute())
}
