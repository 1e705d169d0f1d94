// Package cli defines the cobra commands of the medmindctl operator tool.
package cli

import (
	"fmt"
	"os"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/db"
	"medmind-api/internal/repository/postgres"

	"github.com/spf13/cobra"
)

// store is the subset of the postgres backend the commands need
type store interface {
	db.Database
	Close() error
}

var (
	loadConfig = config.LoadConfig
	connect    = func(cfg config.DatabaseConfig) (store, error) {
		p, err := postgres.Connect(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medmindctl",
		Short: "Operator tool for the MedMind API",
		Long: `medmindctl applies database migrations, seeds demo data, inspects
user token usage and prints the model price table. It reads the same
environment as the API server.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newLimitsCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newPricingCmd())
	return cmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withStore loads configuration, opens the database and closes it once fn returns
func withStore(fn func(cfg *config.AppConfig, database store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	database, err := connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	return fn(cfg, database)
}
