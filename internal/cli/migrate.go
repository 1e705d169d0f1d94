package cli

import (
	"fmt"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if source == "" {
				source = cfg.Database.MigrationsPath
			}
			return runMigrations(cfg.Database, source)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "migration source URL (defaults to MIGRATIONS_PATH)")
	return cmd
}

func runMigrations(dbConfig config.DatabaseConfig, source string) error {
	p, err := postgres.Connect(dbConfig)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer p.Close()

	return p.RunMigrations(source)
}
