package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
)

// TelemetryOptions holds flags for the telemetry command.
type TelemetryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Steps    bool
}

// NewTelemetryCommand creates the telemetry command.
func NewTelemetryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TelemetryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Inspect recorded soul-signature telemetry",
		Long: `Query the telemetry recorded by a running service or a recorded
simulation, newest first.

By default the soul-signature rows (gnosis integrity and entropic fuel)
are shown; pass --steps for the kernel step diagnostics instead.

Examples:
  crucible telemetry --db ./crucible.db
  crucible telemetry --db ./crucible.db --limit 10 --steps
  crucible telemetry --db ./crucible.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTelemetry(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum rows to show")
	cmd.Flags().BoolVar(&opts.Steps, "steps", false, "show kernel step diagnostics instead")

	return cmd
}

func runTelemetry(opts *TelemetryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "limit must not be negative")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()
	if opts.Steps {
		rows, err := st.StepHistory(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query step history", err)
		}
		return outputStepRows(formatter, rows)
	}

	rows, err := st.TelemetryHistory(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query telemetry", err)
	}
	return outputTelemetryRows(formatter, rows)
}

func outputTelemetryRows(formatter *OutputFormatter, rows []store.TelemetryRow) error {
	if formatter.Format == "json" {
		return formatter.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No telemetry recorded")
		return nil
	}

	for _, r := range rows {
		fmt.Fprintf(formatter.Writer, "%6d  %s  gnosis=%.3f  fuel=%.3f\n",
			r.ID, r.Timestamp.Format(time.RFC3339), r.GnosisIntegrity, r.EntropicFuel)
	}
	return nil
}

func outputStepRows(formatter *OutputFormatter, rows []store.StepRow) error {
	if formatter.Format == "json" {
		return formatter.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No step diagnostics recorded")
		return nil
	}

	for _, r := range rows {
		fmt.Fprintf(formatter.Writer, "%6d  %s  purity=%.6f  synthesis=%.6f  scar=%.3f  protocol_zero=%t\n",
			r.ID, r.Timestamp.Format(time.RFC3339), r.Purity, r.Synthesis, r.AtlanteanScar, r.ProtocolZero)
	}
	return nil
}
