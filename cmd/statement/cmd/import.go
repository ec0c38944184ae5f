package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hirosato/account-statements/backend/internal/platform/fixture"
	"github.com/hirosato/account-statements/backend/internal/platform/store"
)

func newImportCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a YAML ledger fixture into the configured store",
		Long: `Load an entity, its currencies, accounts, opening balances and transactions
from a YAML fixture into the configured store. Records with the same IDs are
replaced. Transactions without an id get a generated one.

Example:
  STORE_DRIVER=postgres DATABASE_URL=postgres://localhost/ledger statement import acme.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := global.log()

			f, err := fixture.Load(args[0])
			if err != nil {
				return err
			}

			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			ledgerStore, err := store.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer ledgerStore.Close()

			if err := ledgerStore.Migrate(ctx); err != nil {
				return err
			}

			summary, err := f.Apply(ctx, ledgerStore.Writer)
			if err != nil {
				return err
			}
			logger.Info("fixture imported", "entity", f.Entity.ID, "driver", cfg.StoreDriver)

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d currencies, %d accounts, %d opening balances, %d transactions (%d entries)\n",
				f.Entity.ID, summary.Currencies, summary.Accounts, summary.OpeningBalances, summary.Transactions, summary.Entries)
			return nil
		},
	}
}
