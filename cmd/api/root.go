package main

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "talkline",
	Short: "Metered call sessions and report-driven suspensions",
	Long: `talkline runs the session and suspension engine: metered talker/listener
calls, usage settlement, report-driven suspensions and the login gate.

Configuration comes from the environment (or a .env file).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(migrateCmd)
}
