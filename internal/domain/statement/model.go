package statement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

// Request asks for the statement of one account. Only AccountID is required;
// CurrencyID defaults to the entity's base currency, StartDate to the start
// of the current reporting period and EndDate to now. Dates are YYYY-MM-DD or
// RFC3339; a date-only EndDate covers the whole day.
type Request struct {
	AccountID  string `json:"accountId"`
	CurrencyID string `json:"currencyId,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
}

// Statement is an account statement for a period
type Statement struct {
	AccountID    string   `json:"accountId"`
	Account      string   `json:"account"`
	CurrencyID   string   `json:"currencyId"`
	Currency     string   `json:"currency"`
	EntityID     string   `json:"entityId"`
	Entity       string   `json:"entity"`
	Period       Period   `json:"period"`
	Balances     Balances `json:"balances"`
	Totals       Totals   `json:"totals"`
	Transactions []Row    `json:"transactions"`
}

// Period is the statement window. The opening balance is struck at
// FiscalYearStart, the start of the fiscal year containing StartDate.
type Period struct {
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	FiscalYearStart time.Time `json:"fiscalYearStart"`
}

// Balances holds the opening and closing balances
type Balances struct {
	Opening decimal.Decimal `json:"opening"`
	Closing decimal.Decimal `json:"closing"`
}

// Totals sums the debit and credit columns
type Totals struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Row is one transaction on the statement
type Row struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Number    string          `json:"number"`
	Reference string          `json:"reference,omitempty"`
	Type      string          `json:"type"`
	Narration string          `json:"narration,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
}

// Contribution is the signed amount the row contributed to the account
func (r Row) Contribution() decimal.Decimal {
	return r.Debit.Sub(r.Credit)
}

// Builder produces statements. Service implements it directly; caches wrap it.
type Builder interface {
	BuildStatement(ctx context.Context, tenantCtx *tenant.TenantContext, req Request) (*Statement, error)
	Contribution(ctx context.Context, tenantCtx *tenant.TenantContext, accountID, transactionID string) (decimal.Decimal, error)
}
