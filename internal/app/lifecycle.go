package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// runContext derives the context a run executes under: it expires after
// timeout and is canceled early by SIGINT or SIGTERM, whichever comes
// first. The release function detaches the signal handlers and frees the
// deadline timer; calling it more than once is harmless.
func runContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancelTimeout := context.WithTimeout(parent, timeout)
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	release := func() {
		stopSignals()
		cancelTimeout()
	}
	return ctx, release
}
