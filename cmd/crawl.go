package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/github-stars-crawler/internal/app"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one full crawl to
// the configured (or flag-overridden) target count.
func newCrawlCmd() *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs a full crawl and persists the results",
		Long: `Generates the partitioned query list, crawls it concurrently until the
target count is reached or the search space is exhausted, and persists
repositories plus star snapshots. A failed run still reports how many
repositories were collected before the failure.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			if target > 0 {
				cfg.Crawl.Target = target
			}

			application, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&target, "target", 0, "number of repositories to collect (overrides config)")
	return cmd
}
