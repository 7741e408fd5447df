package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	pgstore "github.com/JakeFAU/github-stars-crawler/internal/storage/postgres"
)

// newInitDBCmd creates the 'initdb' subcommand, which applies the embedded
// schema DDL. Safe to run repeatedly.
func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Creates the database schema",

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

			if err := store.InitSchema(cmd.Context()); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
			cmd.Println("schema applied")
			return nil
		},
	}
}
