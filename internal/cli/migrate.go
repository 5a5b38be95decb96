package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"campuscoin/internal/config"
	"campuscoin/internal/db"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|redo|reset|version]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status", "redo", "reset", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			cfg := config.Load()
			database, err := db.Connect(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.Close()
			return db.Migrate(cmd.Context(), database.DB, command)
		},
	}
}
