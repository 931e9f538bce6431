package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "alcortex",
		Short:        "AlCortex EMR clinical diagnostic service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(diagnoseCmd())
	rootCmd.AddCommand(recordsCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(practitionerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
