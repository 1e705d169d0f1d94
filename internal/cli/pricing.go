package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPricingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pricing",
		Short: "List the model price table used to cost exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			catalog := cfg.Pricing
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tNAME\tINPUT/1K\tOUTPUT/1K\t")
			for _, model := range catalog.GetModels() {
				marker := ""
				if model.ID == catalog.DefaultModel() {
					marker = "default"
				}
				fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s\n", model.ID, model.Name, model.InputPer1K, model.OutputPer1K, marker)
			}
			return w.Flush()
		},
	}
}
