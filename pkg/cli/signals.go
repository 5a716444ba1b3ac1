package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that trigger a graceful shutdown.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// ReloadSignals are the signals that trigger a configuration reload.
var ReloadSignals = []os.Signal{syscall.SIGHUP}

// SetupSignalHandler returns a context canceled on the first SIGINT or
// SIGTERM. A second signal exits the process immediately with code 1.
// Call stop to release the signal handlers.
func SetupSignalHandler(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, ShutdownSignals...)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigChan:
			slog.Error("received second signal, exiting", "signal", sig.String())
			os.Exit(ExitFailure)
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		close(done)
		cancel()
	}
}

// NotifyReload calls reload for every SIGHUP received until ctx is done.
// Calls are serialized; a signal arriving while reload runs is coalesced
// into one further call.
func NotifyReload(ctx context.Context, reload func(context.Context)) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, ReloadSignals...)

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case sig := <-sigChan:
				slog.Info("received reload signal", "signal", sig.String())
				reload(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
