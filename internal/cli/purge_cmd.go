package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/act-dev-25/agents/internal/config"
	"github.com/act-dev-25/agents/internal/store"
)

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove expired keys from the sqlite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cfg.Store.Backend != "sqlite" {
				return fmt.Errorf("purge only applies to the sqlite backend, configured backend is %q", cfg.Store.Backend)
			}

			db, err := store.Open(paths.StorePath(cfg), log)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := store.NewSQLiteKV(db).Purge(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("purged %d expired keys\n", n)
			return nil
		},
	}
}
