package logging

import (
	"io"
	"os"
	"sync/atomic"
)

// stderrSink is the console destination shared by every logger. Swapping
// it redirects loggers that were already built.
type stderrSink struct {
	dst atomic.Pointer[io.Writer]
}

func (s *stderrSink) Write(p []byte) (int, error) {
	return (*s.dst.Load()).Write(p)
}

var console = newStderrSink(os.Stderr)

func newStderrSink(w io.Writer) *stderrSink {
	s := &stderrSink{}
	s.dst.Store(&w)
	return s
}

// SetGlobalOutput points the console sink of every logger at w. The terminal
// demo silences it while it owns the screen.
func SetGlobalOutput(w io.Writer) {
	console.dst.Store(&w)
}

// GetGlobalOutput returns the console sink itself, not its current target.
func GetGlobalOutput() io.Writer {
	return console
}
