package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	pgstore "github.com/JakeFAU/github-stars-crawler/internal/storage/postgres"
)

// newDumpCmd creates the 'dump' subcommand, which exports the latest star
// count per repository to CSV, highest stars first.
func newDumpCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Exports the latest star counts to CSV",

		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}

			store, err := pgstore.NewRepoStore(cmd.Context(), pgstore.StoreConfig{
				DSN:      cfg.DB.DSN,
				MaxConns: cfg.DB.MaxConns,
				MinConns: cfg.DB.MinConns,
			})
			if err != nil {
				return fmt.Errorf("connect store: %w", err)
			}
			defer store.Close()

			counts, err := store.LatestStarCounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("query star counts: %w", err)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer func() { _ = f.Close() }()

			w := csv.NewWriter(f)
			if err := w.Write([]string{"node_id", "name_with_owner", "owner_login", "name", "star_count", "recorded_at"}); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			for _, c := range counts {
				row := []string{
					c.NodeID,
					c.NameWithOwner,
					c.OwnerLogin,
					c.Name,
					strconv.Itoa(c.StarCount),
					c.RecordedAt.Format(time.RFC3339),
				}
				if err := w.Write(row); err != nil {
					return fmt.Errorf("write row: %w", err)
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return fmt.Errorf("flush csv: %w", err)
			}

			cmd.Printf("wrote %d rows to %s\n", len(counts), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "star_counts.csv", "output CSV path")
	return cmd
}
