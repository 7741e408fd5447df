// Package cmd defines and implements the CLI commands for the starcrawl
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/github-stars-crawler/internal/config"
)

var cfgFile string

// cfgKeyType is the key for storing the loaded config in the context.
type cfgKeyType string

const cfgKey cfgKeyType = "config"

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "starcrawl",
		Short: "A rate-limit-aware GitHub repository stars crawler.",
		Long: `starcrawl partitions GitHub's repository search space into thousands of
bounded queries, crawls them concurrently under the API's shared rate-limit
budget, deduplicates results across overlapping queries, and persists
append-only star snapshots to PostgreSQL.`,

		// Runs before every subcommand: load config once and inject it.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey, cfg))
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newInitDBCmd())
	cmd.AddCommand(newDumpCmd())
	return cmd
}

func resolveConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(cfgKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not initialized")
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
