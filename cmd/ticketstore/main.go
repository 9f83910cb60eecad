package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/ticketstore/internal/interfaces/cli/loadgen"
	"github.com/orris-inc/ticketstore/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "ticketstore",
		Short:   "Ticketstore - an in-process ticket store driven by message passing",
		Version: version.String(),
		Long:    `Ticketstore runs a ticket store actor behind a bounded or unbounded command queue and ships tooling to exercise it under concurrent load.`,
	}

	rootCmd.AddCommand(
		loadgen.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
