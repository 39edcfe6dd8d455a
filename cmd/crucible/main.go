// Command crucible operates the sovereign synthesis core.
//
// Run the full service, drive offline kernel simulations, inspect
// recorded telemetry, or validate a config file:
//
//	crucible serve --config crucible.yaml
//	crucible simulate --steps 20 --seed 42
//	crucible telemetry --db ./crucible.db --limit 10
//	crucible config validate crucible.yaml
package main

import (
	"fmt"
	"os"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
