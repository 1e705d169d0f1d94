package cli

import (
	"fmt"
	"strings"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/postgres"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var profiles map[string]string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo user and the specialty assistants",
		Long: `Create the demo user and upsert the specialty assistants.
Each assistant needs the id of its external assistant profile, for example:

  medmindctl seed --profile CARDIOLOGY=asst_abc --profile NEUROLOGY=asst_def`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized := make(map[string]string, len(profiles))
			for specialty, id := range profiles {
				normalized[strings.ToUpper(specialty)] = id
			}

			return withStore(func(cfg *config.AppConfig, database store) error {
				if err := postgres.SeedDemoData(cmd.Context(), database, normalized, cfg.Auth.TrialDuration); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded demo user %q and %d assistant profile(s)\n", postgres.DemoUsername, len(normalized))
				return nil
			})
		},
	}

	cmd.Flags().StringToStringVar(&profiles, "profile", nil, "SPECIALTY=external profile id, repeatable")
	return cmd
}
