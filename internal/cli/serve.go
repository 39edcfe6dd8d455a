package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/config"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/service"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the synthesis core service",
		Long: `Run the full synthesis core: the HTTP API, the kernel step driver,
the harmonic tuner, the watchman patrol and the telemetry sampler.

The service restores the recycler fuel level from the most recent
telemetry row before the background loops start.

Example:
  crucible serve
  crucible serve --config crucible.yaml --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (defaults apply when omitted)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return WrapExitError(ExitFailure, "invalid configuration", err)
		}
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	svc, err := service.New(cfg, service.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build service", err)
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("crucible core starting", "addr", cfg.Server.Addr, "db", cfg.Store.Path)
	fmt.Fprintln(cmd.OutOrStdout(), "Crucible core online. The coil is humming.")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "service error", err)
	}

	slog.Info("crucible core stopped gracefully")
	return nil
}
