package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Palette supplies the terminal color codes used when reporting
// failures. The indirection exists because this package must not import
// the cli package that owns the theme.
type Palette interface {
	Accent() string
	Reset() string
}

// NoColor emits no color codes, for non-terminal output.
type NoColor struct{}

func (NoColor) Accent() string { return "" }
func (NoColor) Reset() string  { return "" }

// HandleComputeError prints a user-facing status line for a failed
// calculation and returns the matching exit code. Timeouts, cancellations
// and generic failures each get their own wording; duration, when known,
// is appended so the user sees how long the attempt ran.
func HandleComputeError(err error, elapsed time.Duration, out io.Writer, pal Palette) int {
	if err == nil {
		return ExitOK
	}
	if pal == nil {
		pal = NoColor{}
	}

	var after string
	if elapsed > 0 {
		after = fmt.Sprintf(" after %s%s%s", pal.Accent(), elapsed, pal.Reset())
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(out, "Status: Failure (Timeout). The execution limit was reached%s.\n", after)
		return ExitTimeout
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "%sStatus: Canceled%s.%s\n", pal.Accent(), after, pal.Reset())
		return ExitCanceled
	default:
		fmt.Fprintf(out, "Status: Failure. Unexpected error: %v\n", err)
		return ExitFailure
	}
}
