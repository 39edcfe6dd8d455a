package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/kernel"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/render"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Steps     int
	Dt        float64
	Strength  float64
	Seed      int64
	Dimension int
	Record    string // optional database path for recording diagnostics
}

// SimulateResult holds the outcome of an offline kernel run.
type SimulateResult struct {
	Steps     int                `json:"steps"`
	Dimension int                `json:"dimension"`
	Dt        float64            `json:"dt"`
	Final     kernel.Diagnostics `json:"final"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive the kernel offline for a fixed number of steps",
		Long: `Drive a fresh synthesis kernel for a fixed number of steps without
starting the service. Each step renders its diagnostics as a will
proclamation; pass --record to persist the diagnostics into a database.

Examples:
  crucible simulate --steps 20
  crucible simulate --steps 100 --dt 0.01 --strength 2.5 --seed 42
  crucible simulate --steps 50 --record ./crucible.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Steps, "steps", 10, "number of kernel steps to run")
	cmd.Flags().Float64Var(&opts.Dt, "dt", 0.05, "step size")
	cmd.Flags().Float64Var(&opts.Strength, "strength", 0, "intent strength applied each step")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "kernel seed (0 means time-based)")
	cmd.Flags().IntVar(&opts.Dimension, "dimension", 4, "Hilbert space dimension")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record step diagnostics into this database")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Steps < 1 {
		return NewExitError(ExitCommandError, "steps must be at least 1")
	}
	if opts.Dt <= 0 {
		return NewExitError(ExitCommandError, "dt must be positive")
	}
	if opts.Dimension < 1 || opts.Dimension > 32 {
		return NewExitError(ExitCommandError, "dimension must be between 1 and 32")
	}

	kopts := []kernel.Option{}
	if opts.Seed != 0 {
		kopts = append(kopts, kernel.WithSeed(opts.Seed))
	}
	// Wills corrupt JSON output, so only render them in text mode.
	if opts.Format == "text" {
		kopts = append(kopts, kernel.WithObserver(
			render.NewWillObserver(cmd.OutOrStdout(), observability.LevelInfo)))
	}
	engine := kernel.New(opts.Dimension, kopts...)

	var st *store.Store
	if opts.Record != "" {
		var err error
		st, err = store.Open(opts.Record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
	}

	formatter.VerboseLog("Simulating %d step(s): dim=%d dt=%g strength=%g",
		opts.Steps, opts.Dimension, opts.Dt, opts.Strength)

	ctx := context.Background()
	var last kernel.Diagnostics
	for i := 0; i < opts.Steps; i++ {
		diag, err := engine.Step(opts.Dt, opts.Strength)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("step %d failed", i+1), err)
		}
		last = diag

		if st != nil {
			rec := store.StepRecord{
				Dt:             opts.Dt,
				Purity:         diag.Purity,
				CommutatorNorm: diag.CommutatorNorm,
				Synthesis:      diag.Synthesis,
				ProtocolZero:   diag.GateActivated,
				AtlanteanScar:  diag.Scar,
			}
			if err := st.LogStep(ctx, rec); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to record step %d", i+1), err)
			}
		}
	}

	result := SimulateResult{
		Steps:     opts.Steps,
		Dimension: opts.Dimension,
		Dt:        opts.Dt,
		Final:     last,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Synthesis complete: %d step(s), final purity %.6f\n",
		result.Steps, result.Final.Purity)
	if opts.Record != "" {
		fmt.Fprintf(formatter.Writer, "Diagnostics recorded to %s\n", opts.Record)
	}
	return nil
}
