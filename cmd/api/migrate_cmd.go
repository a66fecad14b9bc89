package main

import (
	"github.com/spf13/cobra"

	"github.com/swenlog/carrier-directory/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			a.logger.Info("migrations applied")
			return nil
		},
	}
}
