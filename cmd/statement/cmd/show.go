package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/domain/statement"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
	"github.com/hirosato/account-statements/backend/internal/domain/txtype"
	"github.com/hirosato/account-statements/backend/internal/platform/fixture"
	"github.com/hirosato/account-statements/backend/internal/platform/store"
)

type showOptions struct {
	entityID   string
	accountID  string
	currencyID string
	from       string
	to         string
	format     string
	fixture    string
	types      string
}

func newShowCmd(global *globalOptions) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print an account statement",
		Long: `Print the statement of one account: opening balance, the transactions that
posted to it with their debit, credit and running balance, and the closing
balance.

With --fixture the statement is computed from a YAML fixture in memory and no
store is contacted.

Example:
  statement show --entity acme --account bank --from 2024-01-01 --to 2024-03-31
  statement show --fixture acme.yaml --account bank --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.entityID, "entity", "", "entity that owns the books (default: the fixture's entity)")
	cmd.Flags().StringVar(&opts.accountID, "account", "", "account to report on")
	cmd.Flags().StringVar(&opts.currencyID, "currency", "", "currency to report in (default: the entity's base currency)")
	cmd.Flags().StringVar(&opts.from, "from", "", "start date, YYYY-MM-DD (default: start of the current fiscal year)")
	cmd.Flags().StringVar(&opts.to, "to", "", "end date, YYYY-MM-DD (default: now)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&opts.fixture, "fixture", "", "compute from a YAML fixture instead of the configured store")
	cmd.Flags().StringVar(&opts.types, "types", "", "YAML file of transaction type labels, with --fixture")

	return cmd
}

func runShow(cmd *cobra.Command, global *globalOptions, opts *showOptions) error {
	format := strings.ToLower(opts.format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q, expected text or json", opts.format)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := global.log()

	builder, entityID, cleanup, err := openBuilder(ctx, global, opts, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := utils.ValidateTenantID(entityID); err != nil {
		return fmt.Errorf("--entity: %w", err)
	}

	stmt, err := builder.BuildStatement(ctx, &tenant.TenantContext{TenantID: entityID}, statement.Request{
		AccountID:  opts.accountID,
		CurrencyID: opts.currencyID,
		StartDate:  opts.from,
		EndDate:    opts.to,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stmt)
	}
	return renderText(out, stmt)
}

// openBuilder returns the builder to use and the entity to report on
func openBuilder(ctx context.Context, global *globalOptions, opts *showOptions, logger *slog.Logger) (statement.Builder, string, func(), error) {
	if opts.fixture != "" {
		f, err := fixture.Load(opts.fixture)
		if err != nil {
			return nil, "", nil, err
		}
		mem := fixture.NewMemory()
		if _, err := f.Apply(ctx, mem); err != nil {
			return nil, "", nil, err
		}
		labels, err := txtype.Load(opts.types)
		if err != nil {
			return nil, "", nil, err
		}

		entityID := opts.entityID
		if entityID == "" {
			entityID = f.Entity.ID
		}
		return statement.NewService(mem, labels, logger), entityID, func() {}, nil
	}

	cfg, err := global.loadConfig()
	if err != nil {
		return nil, "", nil, err
	}
	ledgerStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, "", nil, err
	}
	builder, err := store.NewBuilder(ctx, cfg, ledgerStore.Repository, logger)
	if err != nil {
		ledgerStore.Close()
		return nil, "", nil, err
	}
	return builder, opts.entityID, func() {
		builder.Close()
		ledgerStore.Close()
	}, nil
}
