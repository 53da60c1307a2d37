package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals stop a saturn command: Ctrl+C interactively, SIGTERM
// from a process supervisor.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler returns a context cancelled on the first shutdown
// signal. A second signal exits immediately, so a fetch stuck on a slow
// Cost Explorer call cannot trap the operator.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, shutdownSignals...)
	go func() {
		<-ch
		cancel()
		<-ch
		fmt.Fprintln(os.Stderr, "forced shutdown")
		os.Exit(1)
	}()

	return ctx
}

// WaitForShutdown blocks until a shutdown signal arrives and returns it.
func WaitForShutdown() os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)
	sig := <-ch
	signal.Stop(ch)
	return sig
}
