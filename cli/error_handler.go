package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/phlux/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message tailored to the error code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	perr, isPhlux := err.(*errors.PhluxError)
	detail := func(key string) interface{} {
		if isPhlux {
			return perr.Details[key]
		}
		return ""
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ Configuration not found. Run 'phlux config show' to see the defaults in effect.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Run 'phlux config validate' for details.\n")

	case errors.ErrCodeBundleNotFound:
		fmt.Fprintf(h.Out, "❌ No saved scope '%v' in the configured repository\n", detail("scope"))

	case errors.ErrCodeUnknownKind:
		fmt.Fprintf(h.Out, "❌ Saved scope uses kind '%v', which this build cannot decode\n", detail("kind"))

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose && isPhlux {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", perr.ToJSON())
	}
	return err
}
