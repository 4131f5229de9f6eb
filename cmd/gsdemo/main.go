// Command gsdemo is a reference host for the gamesync core: it binds a
// UDP transport, registers one demo transceiver with a manager, and
// serves Prometheus metrics and a health endpoint alongside it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gsdemo",
		Short:         "Reference host for the gamesync state-sync core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd(), sendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
