// Package fixture loads ledgers described in YAML into a ledger store, for
// local development and tests.
package fixture

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
)

// Fixture is one entity's books
type Fixture struct {
	Entity          Entity           `yaml:"entity"`
	Currencies      []Currency       `yaml:"currencies"`
	Accounts        []Account        `yaml:"accounts"`
	OpeningBalances []OpeningBalance `yaml:"openingBalances"`
	Transactions    []Transaction    `yaml:"transactions"`
}

type Entity struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	CurrencyID     string `yaml:"currencyId"`
	YearStartMonth int    `yaml:"yearStartMonth"`
}

type Currency struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

type Account struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	CurrencyID string `yaml:"currencyId"`
}

type OpeningBalance struct {
	AccountID  string `yaml:"accountId"`
	CurrencyID string `yaml:"currencyId"`
	Year       int    `yaml:"year"`
	Side       string `yaml:"side"`
	Amount     string `yaml:"amount"`
}

type Transaction struct {
	ID         string  `yaml:"id"`
	Date       string  `yaml:"date"`
	Number     string  `yaml:"number"`
	Reference  string  `yaml:"reference"`
	Type       string  `yaml:"type"`
	Narration  string  `yaml:"narration"`
	CurrencyID string  `yaml:"currencyId"`
	Deleted    bool    `yaml:"deleted"`
	Entries    []Entry `yaml:"entries"`
}

// Entry amounts are signed from the post account's side
type Entry struct {
	Post   string `yaml:"post"`
	Folio  string `yaml:"folio"`
	Amount string `yaml:"amount"`
}

// Summary counts what Apply wrote
type Summary struct {
	Currencies      int
	Accounts        int
	OpeningBalances int
	Transactions    int
	Entries         int
}

// Load reads a fixture file
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture and checks that it names an entity
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if f.Entity.ID == "" {
		return nil, fmt.Errorf("fixture has no entity id")
	}
	if err := utils.ValidateID(f.Entity.ID, "entity id"); err != nil {
		return nil, err
	}
	if err := utils.ValidateRequiredString(f.Entity.CurrencyID, "entity currencyId"); err != nil {
		return nil, fmt.Errorf("entity %s: %w", f.Entity.ID, err)
	}
	for _, c := range f.Currencies {
		if err := utils.ValidateID(c.ID, "currency id"); err != nil {
			return nil, err
		}
		if c.Code != "" {
			if err := utils.ValidateCurrency(c.Code); err != nil {
				return nil, fmt.Errorf("currency %s: %w", c.ID, err)
			}
		}
	}
	for _, a := range f.Accounts {
		if err := utils.ValidateID(a.ID, "account id"); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

func parseAmount(value, where string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q: %w", where, value, err)
	}
	return amount, nil
}

func parseDate(value, where string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(time.DateOnly, value, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q", where, value)
	}
	return t.UTC(), nil
}

// ledgerTransactions converts the fixture's transactions to ledger transactions.
// A transaction without a currency is in the entity's base currency.
func (f *Fixture) ledgerTransactions() ([]ledger.Transaction, error) {
	txns := make([]ledger.Transaction, 0, len(f.Transactions))
	for i, t := range f.Transactions {
		where := fmt.Sprintf("transaction %d", i+1)
		if t.ID != "" {
			where = "transaction " + t.ID
		}

		date, err := parseDate(t.Date, where)
		if err != nil {
			return nil, err
		}
		currencyID := t.CurrencyID
		if currencyID == "" {
			currencyID = f.Entity.CurrencyID
		}

		entries := make([]ledger.Entry, 0, len(t.Entries))
		for j, e := range t.Entries {
			if e.Post == "" || e.Folio == "" {
				return nil, fmt.Errorf("%s entry %d: post and folio accounts are required", where, j+1)
			}
			amount, err := parseAmount(e.Amount, fmt.Sprintf("%s entry %d", where, j+1))
			if err != nil {
				return nil, err
			}
			entries = append(entries, ledger.Entry{
				PostAccountID:  e.Post,
				FolioAccountID: e.Folio,
				Amount:         amount,
			})
		}

		txns = append(txns, ledger.Transaction{
			TransactionID: t.ID,
			EntityID:      f.Entity.ID,
			CurrencyID:    currencyID,
			Date:          date,
			Number:        t.Number,
			Reference:     t.Reference,
			Narration:     t.Narration,
			Type:          t.Type,
			Deleted:       t.Deleted,
			Entries:       entries,
		})
	}
	return txns, nil
}

// Apply writes the fixture through w. Everything is converted before the
// first write, so a malformed fixture writes nothing.
func (f *Fixture) Apply(ctx context.Context, w ledger.Writer) (Summary, error) {
	var summary Summary

	txns, err := f.ledgerTransactions()
	if err != nil {
		return summary, err
	}

	balances := make([]ledger.OpeningBalance, 0, len(f.OpeningBalances))
	for _, b := range f.OpeningBalances {
		where := fmt.Sprintf("opening balance %s/%d", b.AccountID, b.Year)
		amount, err := parseAmount(b.Amount, where)
		if err != nil {
			return summary, err
		}
		side := ledger.Side(strings.ToLower(strings.TrimSpace(b.Side)))
		if side == "" {
			side = ledger.Debit
		}
		if !side.Valid() {
			return summary, fmt.Errorf("%s: invalid side %q", where, b.Side)
		}
		if amount.IsNegative() {
			amount = amount.Neg()
			side = opposite(side)
		}
		currencyID := b.CurrencyID
		if currencyID == "" {
			currencyID = f.Entity.CurrencyID
		}
		balances = append(balances, ledger.OpeningBalance{
			EntityID:   f.Entity.ID,
			AccountID:  b.AccountID,
			CurrencyID: currencyID,
			Year:       b.Year,
			Side:       side,
			Amount:     amount,
		})
	}

	if err := w.PutEntity(ctx, &ledger.Entity{
		EntityID:       f.Entity.ID,
		Name:           f.Entity.Name,
		CurrencyID:     f.Entity.CurrencyID,
		YearStartMonth: f.Entity.YearStartMonth,
	}); err != nil {
		return summary, fmt.Errorf("entity %s: %w", f.Entity.ID, err)
	}

	for _, c := range f.Currencies {
		if err := w.PutCurrency(ctx, &ledger.Currency{
			CurrencyID:   c.ID,
			EntityID:     f.Entity.ID,
			Name:         c.Name,
			CurrencyCode: c.Code,
		}); err != nil {
			return summary, fmt.Errorf("currency %s: %w", c.ID, err)
		}
		summary.Currencies++
	}

	for _, a := range f.Accounts {
		if err := w.PutAccount(ctx, &ledger.Account{
			AccountID:   a.ID,
			EntityID:    f.Entity.ID,
			Name:        a.Name,
			AccountType: ledger.AccountType(strings.ToLower(a.Type)),
			CurrencyID:  a.CurrencyID,
		}); err != nil {
			return summary, fmt.Errorf("account %s: %w", a.ID, err)
		}
		summary.Accounts++
	}

	for i := range balances {
		if err := w.PutOpeningBalance(ctx, &balances[i]); err != nil {
			return summary, fmt.Errorf("opening balance %s/%d: %w", balances[i].AccountID, balances[i].Year, err)
		}
		summary.OpeningBalances++
	}

	for i := range txns {
		stored, err := w.PutTransaction(ctx, &txns[i])
		if err != nil {
			return summary, fmt.Errorf("transaction %s: %w", txns[i].Number, err)
		}
		summary.Transactions++
		summary.Entries += len(stored.Entries)
	}

	return summary, nil
}

func opposite(side ledger.Side) ledger.Side {
	if side == ledger.Debit {
		return ledger.Credit
	}
	return ledger.Debit
}
