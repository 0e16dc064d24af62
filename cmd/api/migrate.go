package main

import (
	"fmt"

	"talkline/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables",
	Long:  `Create every table and index talkline needs. Safe to run repeatedly.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openPostgres(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		log.Info("migrations applied")
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
