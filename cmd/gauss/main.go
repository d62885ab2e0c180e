// Command gauss multiplies arbitrary-precision integers. One binary fronts
// the backends registered in internal/mult: single-shot products and
// Fibonacci workloads, backend comparison, an HTTP API, an interactive
// REPL, and threshold calibration. Everything past the process boundary
// lives in internal/app.
package main

import (
	"context"
	"os"

	"github.com/fermatlab/gauss/internal/app"
	apperrors "github.com/fermatlab/gauss/internal/errors"
)

func main() {
	// Version is answered before flag parsing so it works regardless of
	// whatever else is on the command line.
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		os.Exit(apperrors.ExitOK)
	}

	a, err := app.New(os.Args, os.Stderr)
	if err != nil {
		// Parse and validation failures were already reported on stderr.
		// -h lands here too and is not an error.
		if app.HelpRequested(err) {
			os.Exit(apperrors.ExitOK)
		}
		os.Exit(apperrors.ExitBadConfig)
	}

	os.Exit(a.Run(context.Background(), os.Stdout))
}
