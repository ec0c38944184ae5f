// Package statement builds account statements from the posted ledger.
package statement

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
	"github.com/hirosato/account-statements/backend/internal/domain/period"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
	"github.com/hirosato/account-statements/backend/internal/domain/txtype"
)

const (
	reportName = "Account Statement"

	defaultParallelThreshold = 512
	defaultBatchSize         = 256
	defaultWorkers           = 4
)

// Service builds statements
type Service struct {
	repo   ledger.Repository
	labels txtype.Labeler
	logger *slog.Logger
	now    func() time.Time

	parallelThreshold int
	batchSize         int
	workers           int
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now, which supplies the default period bounds.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithParallelism sets how many candidates a statement must have before
// contributions are computed concurrently, the batch size and the number of
// concurrent batches.
func WithParallelism(threshold, batchSize, workers int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.parallelThreshold = threshold
		}
		if batchSize > 0 {
			s.batchSize = batchSize
		}
		if workers > 0 {
			s.workers = workers
		}
	}
}

// NewService creates a new statement service
func NewService(repo ledger.Repository, labels txtype.Labeler, logger *slog.Logger, opts ...Option) *Service {
	if labels == nil {
		labels = txtype.Defaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:              repo,
		labels:            labels,
		logger:            logger,
		now:               time.Now,
		parallelThreshold: defaultParallelThreshold,
		batchSize:         defaultBatchSize,
		workers:           defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildStatement generates the statement of req.AccountID for the tenant's
// entity. The account ID and dates are validated before any store access.
func (s *Service) BuildStatement(ctx context.Context, tenantCtx *tenant.TenantContext, req Request) (*Statement, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, errors.NewMissingAccountError(reportName, nil)
	}
	window, err := parseWindow(req)
	if err != nil {
		return nil, err
	}
	if tenantCtx == nil || tenantCtx.TenantID == "" {
		return nil, errors.NewTenantError("tenant context is required")
	}

	entity, err := s.repo.GetEntity(ctx, tenantCtx.TenantID)
	if err != nil {
		return nil, err
	}

	account, err := s.account(ctx, entity.EntityID, accountID, reportName)
	if err != nil {
		return nil, err
	}

	currencyID := strings.TrimSpace(req.CurrencyID)
	if currencyID == "" {
		currencyID = entity.CurrencyID
	}
	currency, err := s.repo.GetCurrency(ctx, entity.EntityID, currencyID)
	if err != nil {
		return nil, err
	}

	start, end := window.start, window.end
	now := s.now()
	if start.IsZero() {
		start = period.ForEntity(entity).PeriodStart(now)
	}
	if end.IsZero() {
		end = now
	}
	if end.Before(start) {
		return nil, errors.NewInvalidDateError("endDate", end.Format(time.RFC3339), nil).
			WithDetail("startDate", start.Format(time.RFC3339))
	}

	opening, fiscalYearStart, err := s.openingBalance(ctx, entity, account, currency, start)
	if err != nil {
		return nil, err
	}

	txns, err := s.repo.FindTransactions(ctx, ledger.TransactionFilter{
		EntityID:   entity.EntityID,
		AccountID:  account.AccountID,
		CurrencyID: currency.CurrencyID,
		From:       start,
		To:         end,
	})
	if err != nil {
		return nil, err
	}
	txns = chronological(txns)

	contributions, err := s.contributions(ctx, account.AccountID, txns)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{
		AccountID:  account.AccountID,
		Account:    account.Name,
		CurrencyID: currency.CurrencyID,
		Currency:   currency.Name,
		EntityID:   entity.EntityID,
		Entity:     entity.Name,
		Period: Period{
			StartDate:       start,
			EndDate:         end,
			FiscalYearStart: fiscalYearStart,
		},
		Balances: Balances{
			Opening: opening,
			Closing: opening,
		},
		Totals: Totals{
			Debit:  decimal.Zero,
			Credit: decimal.Zero,
		},
		Transactions: make([]Row, 0, len(txns)),
	}

	for i, txn := range txns {
		contribution := contributions[i]
		debit, credit := ledger.Split(contribution)

		stmt.Balances.Closing = stmt.Balances.Closing.Add(contribution)
		stmt.Totals.Debit = stmt.Totals.Debit.Add(debit)
		stmt.Totals.Credit = stmt.Totals.Credit.Add(credit)

		stmt.Transactions = append(stmt.Transactions, Row{
			ID:        txn.TransactionID,
			Date:      txn.Date,
			Number:    txn.Number,
			Reference: txn.Reference,
			Type:      s.labels.Label(txn.Type),
			Narration: txn.Narration,
			Debit:     debit,
			Credit:    credit,
			Balance:   stmt.Balances.Closing,
		})
	}

	s.logger.DebugContext(ctx, "statement built",
		"entityId", entity.EntityID,
		"accountId", account.AccountID,
		"currencyId", currency.CurrencyID,
		"rows", len(stmt.Transactions),
		"closing", stmt.Balances.Closing.String())

	return stmt, nil
}

// Contribution returns the net signed effect of one transaction on an account.
func (s *Service) Contribution(ctx context.Context, tenantCtx *tenant.TenantContext, accountID, transactionID string) (decimal.Decimal, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return decimal.Zero, errors.NewMissingAccountError("Contribution", nil)
	}
	if strings.TrimSpace(transactionID) == "" {
		return decimal.Zero, errors.NewValidationError("transactionId is required")
	}
	if tenantCtx == nil || tenantCtx.TenantID == "" {
		return decimal.Zero, errors.NewTenantError("tenant context is required")
	}

	if _, err := s.account(ctx, tenantCtx.TenantID, accountID, "Contribution"); err != nil {
		return decimal.Zero, err
	}

	txn, err := s.repo.GetTransaction(ctx, tenantCtx.TenantID, transactionID)
	if err != nil {
		return decimal.Zero, err
	}
	if txn.Deleted {
		return decimal.Zero, errors.NewNotFoundError("transaction not found").WithDetail("transactionId", transactionID)
	}
	return ledger.Contribution(accountID, txn.Entries), nil
}

// account loads the account, reporting a miss as a missing account for report
func (s *Service) account(ctx context.Context, entityID, accountID, report string) (*ledger.Account, error) {
	account, err := s.repo.GetAccount(ctx, entityID, accountID)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewMissingAccountError(report, err).WithDetail("accountId", accountID)
		}
		return nil, err
	}
	return account, nil
}

// chronological drops repeated transaction IDs, keeping the first, and sorts
// by date then ID.
func chronological(txns []ledger.Transaction) []ledger.Transaction {
	seen := make(map[string]struct{}, len(txns))
	out := make([]ledger.Transaction, 0, len(txns))
	for _, txn := range txns {
		if _, ok := seen[txn.TransactionID]; ok {
			continue
		}
		seen[txn.TransactionID] = struct{}{}
		out = append(out, txn)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out
}

// contributions computes each transaction's contribution, index-aligned with
// txns. Large sets are split into batches computed concurrently.
func (s *Service) contributions(ctx context.Context, accountID string, txns []ledger.Transaction) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(txns))
	if len(txns) < s.parallelThreshold {
		for i := range txns {
			out[i] = ledger.Contribution(accountID, txns[i].Entries)
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for lo := 0; lo < len(txns); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(txns))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = ledger.Contribution(accountID, txns[i].Entries)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
