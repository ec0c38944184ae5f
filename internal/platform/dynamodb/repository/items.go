package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
)

// Item types stored in the Type attribute
const (
	typeEntity         = "entity"
	typeCurrency       = "currency"
	typeAccount        = "account"
	typeTransaction    = "transaction"
	typePosting        = "posting"
	typeOpeningBalance = "opening_balance"
)

// sortableTime is fixed width so posting sort keys order chronologically
const sortableTime = "2006-01-02T15:04:05.000000000Z"

func entityPK(entityID string) string {
	return fmt.Sprintf("ENTITY#%s", entityID)
}

func accountSK(accountID string) string {
	return fmt.Sprintf("ACCOUNT#%s", accountID)
}

func currencySK(currencyID string) string {
	return fmt.Sprintf("CURRENCY#%s", currencyID)
}

func transactionSK(transactionID string) string {
	return fmt.Sprintf("TXN#%s", transactionID)
}

// postingPK partitions the posting index by account and currency
func postingPK(entityID, accountID, currencyID string) string {
	return fmt.Sprintf("ENTITY#%s#ACCOUNT#%s#CURRENCY#%s", entityID, accountID, currencyID)
}

func postingDateKey(t time.Time) string {
	return "DATE#" + t.UTC().Format(sortableTime)
}

func postingSK(date time.Time, transactionID string) string {
	return fmt.Sprintf("%s#TXN#%s", postingDateKey(date), transactionID)
}

// postingUpperBound sorts after every posting dated at t
func postingUpperBound(t time.Time) string {
	return postingDateKey(t) + "#~"
}

func openingPK(entityID, accountID, currencyID string) string {
	return postingPK(entityID, accountID, currencyID) + "#OPENING"
}

func openingSK(year int) string {
	return fmt.Sprintf("YEAR#%04d", year)
}

type entityItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	Type           string `dynamodbav:"Type"`
	EntityID       string `dynamodbav:"entityId"`
	Name           string `dynamodbav:"name"`
	CurrencyID     string `dynamodbav:"currencyId"`
	YearStartMonth int    `dynamodbav:"yearStartMonth"`
}

func (i entityItem) toModel() *ledger.Entity {
	return &ledger.Entity{
		EntityID:       i.EntityID,
		Name:           i.Name,
		CurrencyID:     i.CurrencyID,
		YearStartMonth: i.YearStartMonth,
	}
}

type currencyItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Type         string `dynamodbav:"Type"`
	CurrencyID   string `dynamodbav:"currencyId"`
	EntityID     string `dynamodbav:"entityId"`
	Name         string `dynamodbav:"name"`
	CurrencyCode string `dynamodbav:"currencyCode"`
}

func (i currencyItem) toModel() *ledger.Currency {
	return &ledger.Currency{
		CurrencyID:   i.CurrencyID,
		EntityID:     i.EntityID,
		Name:         i.Name,
		CurrencyCode: i.CurrencyCode,
	}
}

type accountItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	Type          string `dynamodbav:"Type"`
	AccountID     string `dynamodbav:"accountId"`
	EntityID      string `dynamodbav:"entityId"`
	Name          string `dynamodbav:"name"`
	AccountType   string `dynamodbav:"accountType"`
	NormalBalance string `dynamodbav:"normalBalance"`
	CurrencyID    string `dynamodbav:"currencyId,omitempty"`
}

func (i accountItem) toModel() *ledger.Account {
	return &ledger.Account{
		AccountID:     i.AccountID,
		EntityID:      i.EntityID,
		Name:          i.Name,
		AccountType:   ledger.AccountType(i.AccountType),
		NormalBalance: ledger.Side(i.NormalBalance),
		CurrencyID:    i.CurrencyID,
	}
}

// transactionItem embeds the entries; amounts are kept as decimal strings
type transactionItem struct {
	PK              string      `dynamodbav:"PK"`
	SK              string      `dynamodbav:"SK"`
	Type            string      `dynamodbav:"Type"`
	TransactionID   string      `dynamodbav:"transactionId"`
	EntityID        string      `dynamodbav:"entityId"`
	CurrencyID      string      `dynamodbav:"currencyId"`
	Date            string      `dynamodbav:"date"`
	Number          string      `dynamodbav:"number"`
	Reference       string      `dynamodbav:"reference,omitempty"`
	Narration       string      `dynamodbav:"narration,omitempty"`
	TransactionType string      `dynamodbav:"transactionType"`
	Deleted         bool        `dynamodbav:"deleted"`
	Entries         []entryItem `dynamodbav:"entries"`
}

type entryItem struct {
	EntryID        string `dynamodbav:"entryId"`
	PostAccountID  string `dynamodbav:"postAccountId"`
	FolioAccountID string `dynamodbav:"folioAccountId"`
	Amount         string `dynamodbav:"amount"`
}

func newTransactionItem(txn *ledger.Transaction) transactionItem {
	item := transactionItem{
		PK:              entityPK(txn.EntityID),
		SK:              transactionSK(txn.TransactionID),
		Type:            typeTransaction,
		TransactionID:   txn.TransactionID,
		EntityID:        txn.EntityID,
		CurrencyID:      txn.CurrencyID,
		Date:            txn.Date.UTC().Format(time.RFC3339Nano),
		Number:          txn.Number,
		Reference:       txn.Reference,
		Narration:       txn.Narration,
		TransactionType: txn.Type,
		Deleted:         txn.Deleted,
		Entries:         make([]entryItem, 0, len(txn.Entries)),
	}
	for _, entry := range txn.Entries {
		item.Entries = append(item.Entries, entryItem{
			EntryID:        entry.EntryID,
			PostAccountID:  entry.PostAccountID,
			FolioAccountID: entry.FolioAccountID,
			Amount:         entry.Amount.String(),
		})
	}
	return item
}

func (i transactionItem) toModel() (*ledger.Transaction, error) {
	date, err := time.Parse(time.RFC3339Nano, i.Date)
	if err != nil {
		return nil, fmt.Errorf("transaction %s has invalid date %q: %w", i.TransactionID, i.Date, err)
	}
	txn := &ledger.Transaction{
		TransactionID: i.TransactionID,
		EntityID:      i.EntityID,
		CurrencyID:    i.CurrencyID,
		Date:          date,
		Number:        i.Number,
		Reference:     i.Reference,
		Narration:     i.Narration,
		Type:          i.TransactionType,
		Deleted:       i.Deleted,
		Entries:       make([]ledger.Entry, 0, len(i.Entries)),
	}
	for _, entry := range i.Entries {
		amount, err := decimal.NewFromString(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("entry %s has invalid amount %q: %w", entry.EntryID, entry.Amount, err)
		}
		txn.Entries = append(txn.Entries, ledger.Entry{
			EntryID:        entry.EntryID,
			TransactionID:  i.TransactionID,
			PostAccountID:  entry.PostAccountID,
			FolioAccountID: entry.FolioAccountID,
			Amount:         amount,
		})
	}
	return txn, nil
}

// postingItem indexes a transaction under every account it touches
type postingItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	Type          string `dynamodbav:"Type"`
	TransactionID string `dynamodbav:"transactionId"`
}

type openingBalanceItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Type       string `dynamodbav:"Type"`
	EntityID   string `dynamodbav:"entityId"`
	AccountID  string `dynamodbav:"accountId"`
	CurrencyID string `dynamodbav:"currencyId"`
	Year       int    `dynamodbav:"year"`
	Side       string `dynamodbav:"side"`
	Amount     string `dynamodbav:"amount"`
}

func (i openingBalanceItem) toModel() (*ledger.OpeningBalance, error) {
	amount, err := decimal.NewFromString(i.Amount)
	if err != nil {
		return nil, fmt.Errorf("opening balance %s has invalid amount %q: %w", i.SK, i.Amount, err)
	}
	return &ledger.OpeningBalance{
		EntityID:   i.EntityID,
		AccountID:  i.AccountID,
		CurrencyID: i.CurrencyID,
		Year:       i.Year,
		Side:       ledger.Side(i.Side),
		Amount:     amount,
	}, nil
}
