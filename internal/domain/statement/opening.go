package statement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
	"github.com/hirosato/account-statements/backend/internal/domain/period"
)

// openingBalance returns the account's balance at the first instant of the
// fiscal year containing start, together with that instant.
func (s *Service) openingBalance(ctx context.Context, entity *ledger.Entity, account *ledger.Account, currency *ledger.Currency, start time.Time) (decimal.Decimal, time.Time, error) {
	fiscalYearStart := period.ForEntity(entity).FiscalYearStart(start)

	opening, err := s.repo.OpeningBalance(ctx, entity.EntityID, account.AccountID, currency.CurrencyID, fiscalYearStart)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	return opening, fiscalYearStart, nil
}
