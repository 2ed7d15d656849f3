package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wlingo-quiz-service/internal/config"
)

// NewTopicsCmd prints the vocabulary topics the server would offer.
func NewTopicsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List available vocabulary topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, closeLog, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			pool, err := connectPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}
			catalog, err := buildCatalog(ctx, cfg, pool, log)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tWORDS")
			for _, t := range catalog.Topics() {
				fmt.Fprintf(w, "%s\t%s\t%d\n", t.ID, t.DisplayName, t.Count)
			}
			return w.Flush()
		},
	}
}
