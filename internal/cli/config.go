package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/config"
)

// ConfigCheckResult holds config validation results.
type ConfigCheckResult struct {
	Valid  bool           `json:"valid"`
	Config *config.Config `json:"config,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	cmd.AddCommand(newConfigValidateCommand(rootOpts))

	return cmd
}

func newConfigValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a config file against the schema",
		Long: `Load a YAML config file, apply defaults and check it against the
embedded CUE schema. Reports every violation, not just the first.

Example:
  crucible config validate crucible.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runConfigValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			_ = formatter.Error("config_invalid", err.Error())
			return NewExitError(ExitFailure, "configuration is invalid")
		}
		_ = formatter.Error("config_load_failed", err.Error())
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ConfigCheckResult{Valid: true, Config: &cfg})
	}

	fmt.Fprintln(formatter.Writer, "✓ Configuration valid")
	formatter.VerboseLog("Resolved server address: %s", cfg.Server.Addr)
	formatter.VerboseLog("Resolved database path: %s", cfg.Store.Path)
	return nil
}
