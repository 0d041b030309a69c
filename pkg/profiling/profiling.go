// Package profiling adds pprof capture flags to a cobra command tree.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/grovetools/phlux/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CobraProfiler captures CPU and heap profiles around command execution.
type CobraProfiler struct {
	cpuProfilePath string
	memProfilePath string
	timing         bool

	cpuFile *os.File
	started time.Time
	logger  *logrus.Entry
}

// NewCobraProfiler creates a profiler reporting to logger.
func NewCobraProfiler(logger *logrus.Entry) *CobraProfiler {
	return &CobraProfiler{logger: logger}
}

// Attach registers the profiling flags on cmd and installs the persistent run
// hooks. Subcommands that set their own persistent hooks shadow these.
func (p *CobraProfiler) Attach(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&p.memProfilePath, "mem-profile", "", "Write heap profile to file")
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Log how long the command ran")
	cmd.PersistentPreRunE = p.PreRun
	cmd.PersistentPostRun = p.PostRun
}

// PreRun starts CPU profiling when requested.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	p.started = time.Now()
	if p.cpuProfilePath == "" {
		return nil
	}

	f, err := os.Create(p.cpuProfilePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "could not create CPU profile").
			WithDetail("path", p.cpuProfilePath)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeInternal, "could not start CPU profile")
	}
	p.cpuFile = f
	return nil
}

// PostRun writes whatever profiles were requested.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
		p.logger.WithField("path", p.cpuProfilePath).Info("CPU profile written")
	}

	if p.memProfilePath != "" {
		if err := writeHeapProfile(p.memProfilePath); err != nil {
			p.logger.WithError(err).Warn("Could not write heap profile")
		} else {
			p.logger.WithField("path", p.memProfilePath).Info("Heap profile written")
		}
	}

	if p.timing {
		p.logger.WithFields(logrus.Fields{
			"command":  cmd.CommandPath(),
			"duration": time.Since(p.started).Round(time.Millisecond),
		}).Info("Command finished")
	}
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	runtime.GC() // up-to-date statistics
	return pprof.WriteHeapProfile(f)
}
