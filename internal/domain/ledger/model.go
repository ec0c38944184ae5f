package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the debit or credit side of a posting or balance.
type Side string

const (
	// Debit side
	Debit Side = "debit"
	// Credit side
	Credit Side = "credit"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == Debit || s == Credit
}

// AccountType classifies an account in the chart of accounts
type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Income    AccountType = "income"
	Expense   AccountType = "expense"
)

// NormalBalance returns the side an account type's balance is conventionally
// expressed on.
func (t AccountType) NormalBalance() Side {
	switch t {
	case Liability, Equity, Income:
		return Credit
	default:
		return Debit
	}
}

// Entity is the organization that owns a set of books
type Entity struct {
	EntityID       string `json:"entityId"`
	Name           string `json:"name"`
	CurrencyID     string `json:"currencyId"`     // base currency
	YearStartMonth int    `json:"yearStartMonth"` // 1-12, 0 means January
}

// Currency is a currency configured for an entity
type Currency struct {
	CurrencyID   string `json:"currencyId"`
	EntityID     string `json:"entityId"`
	Name         string `json:"name"`
	CurrencyCode string `json:"currencyCode"`
}

// Account is a ledger account
type Account struct {
	AccountID     string      `json:"accountId"`
	EntityID      string      `json:"entityId"`
	Name          string      `json:"name"`
	AccountType   AccountType `json:"accountType"`
	NormalBalance Side        `json:"normalBalance"`
	CurrencyID    string      `json:"currencyId,omitempty"`
}

// Transaction is a posted business event and its ledger entries
type Transaction struct {
	TransactionID string    `json:"transactionId"`
	EntityID      string    `json:"entityId"`
	CurrencyID    string    `json:"currencyId"`
	Date          time.Time `json:"date"`
	Number        string    `json:"number"`
	Reference     string    `json:"reference,omitempty"`
	Narration     string    `json:"narration,omitempty"`
	Type          string    `json:"type"`
	Deleted       bool      `json:"deleted,omitempty"`
	Entries       []Entry   `json:"entries,omitempty"`
}

// Touches reports whether any entry references accountID
func (t Transaction) Touches(accountID string) bool {
	for _, e := range t.Entries {
		if e.Touches(accountID) {
			return true
		}
	}
	return false
}

// Entry is one posted line of a transaction. Amount is signed from the post
// account's perspective: positive debits the post account and credits the
// folio account.
type Entry struct {
	EntryID        string          `json:"entryId"`
	TransactionID  string          `json:"transactionId"`
	PostAccountID  string          `json:"postAccountId"`
	FolioAccountID string          `json:"folioAccountId"`
	Amount         decimal.Decimal `json:"amount"`
}

// Touches reports whether the entry references accountID in either role.
func (e Entry) Touches(accountID string) bool {
	return e.PostAccountID == accountID || e.FolioAccountID == accountID
}

// OpeningBalance is a balance brought forward into a fiscal year, typically
// recorded when books are migrated without their full history.
type OpeningBalance struct {
	EntityID   string          `json:"entityId"`
	AccountID  string          `json:"accountId"`
	CurrencyID string          `json:"currencyId"`
	Year       int             `json:"year"`
	Side       Side            `json:"side"`
	Amount     decimal.Decimal `json:"amount"`
}

// TransactionFilter selects the transactions an account participated in
type TransactionFilter struct {
	EntityID   string
	AccountID  string
	CurrencyID string
	From       time.Time // inclusive
	To         time.Time // inclusive
}
