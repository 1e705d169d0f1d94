package cli

import (
	"errors"
	"fmt"

	"medmind-api/internal/config"
	"medmind-api/internal/repository/db"
	"medmind-api/internal/service/quota"

	"github.com/spf13/cobra"
)

func newLimitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits <username>",
		Short: "Show a user's token allowance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg *config.AppConfig, database store) error {
				user, err := lookupUser(cmd, database, args[0])
				if err != nil {
					return err
				}

				gate := quota.NewGate(cfg.Quota)
				limits := gate.Limits(user)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User:         %s\n", user.Username)
				fmt.Fprintf(out, "Subscription: %s\n", limits.Subscription)
				if limits.SubscriptionExpiresAt != nil {
					fmt.Fprintf(out, "Expires:      %s\n", limits.SubscriptionExpiresAt.Format("2006-01-02 15:04"))
				}
				fmt.Fprintf(out, "Valid:        %t\n", gate.IsSubscriptionValid(user))
				fmt.Fprintf(out, "Tokens:       %d / %d (%d%%)\n", limits.TokensUsed, limits.TokenLimit, limits.PercentageUsed)
				fmt.Fprintf(out, "Remaining:    %d\n", limits.TokensRemaining)
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <username>",
		Short: "Show a user's conversation counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg *config.AppConfig, database store) error {
				user, err := lookupUser(cmd, database, args[0])
				if err != nil {
					return err
				}

				stats, err := database.GetUserStats(cmd.Context(), user.ID)
				if err != nil {
					return fmt.Errorf("loading stats: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User:          %s\n", user.Username)
				fmt.Fprintf(out, "Conversations: %d (%d active)\n", stats.TotalConversations, stats.ActiveConversations)
				fmt.Fprintf(out, "Messages:      %d\n", stats.TotalMessages)
				fmt.Fprintf(out, "Tokens used:   %d\n", stats.TotalTokensUsed)
				return nil
			})
		},
	}
}

func lookupUser(cmd *cobra.Command, database store, username string) (*db.User, error) {
	user, err := database.GetUserByUsername(cmd.Context(), username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("user %q not found", username)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}
