package cli

import (
	"fmt"

	"github.com/axellelanca/linkshortener/cmd"
	"github.com/axellelanca/linkshortener/internal/config"
	"github.com/axellelanca/linkshortener/internal/logging"
	"github.com/axellelanca/linkshortener/internal/repository"
	"github.com/spf13/cobra"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite or PostgreSQL)
and executes GORM automatic migrations to create the 'links' table.
The Redis backend has no schema and needs no migration.`,
	RunE: func(command *cobra.Command, args []string) error {
		if cmd.Cfg.Storage.Backend == config.BackendRedis {
			cmd.Logger.Info("redis backend selected, nothing to migrate")
			return nil
		}

		db, err := repository.OpenDatabase(cmd.Cfg.Database, logging.ParseLevel(cmd.Cfg.Log.Level))
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying SQL database: %w", err)
		}
		defer sqlDB.Close()

		if err := repository.Migrate(db); err != nil {
			return err
		}

		fmt.Fprintln(command.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
