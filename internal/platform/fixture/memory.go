package fixture

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
)

type openingKey struct {
	entityID, accountID, currencyID string
	year                            int
}

// Memory is an in-process ledger store. It backs `statement show --fixture`
// and tests.
type Memory struct {
	mu           sync.RWMutex
	entities     map[string]ledger.Entity
	accounts     map[string]ledger.Account
	currencies   map[string]ledger.Currency
	transactions map[string]ledger.Transaction
	openings     map[openingKey]ledger.OpeningBalance
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		entities:     make(map[string]ledger.Entity),
		accounts:     make(map[string]ledger.Account),
		currencies:   make(map[string]ledger.Currency),
		transactions: make(map[string]ledger.Transaction),
		openings:     make(map[openingKey]ledger.OpeningBalance),
	}
}

func scoped(entityID, id string) string {
	return entityID + "#" + id
}

func notFound(what, id string) error {
	return errors.NewNotFoundError(what+" not found").WithDetail(what+"Id", id)
}

func (m *Memory) GetEntity(ctx context.Context, entityID string) (*ledger.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entity, ok := m.entities[entityID]
	if !ok {
		return nil, notFound("entity", entityID)
	}
	return &entity, nil
}

func (m *Memory) GetAccount(ctx context.Context, entityID, accountID string) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[scoped(entityID, accountID)]
	if !ok {
		return nil, notFound("account", accountID)
	}
	return &account, nil
}

func (m *Memory) GetCurrency(ctx context.Context, entityID, currencyID string) (*ledger.Currency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	currency, ok := m.currencies[scoped(entityID, currencyID)]
	if !ok {
		return nil, notFound("currency", currencyID)
	}
	return &currency, nil
}

func (m *Memory) GetTransaction(ctx context.Context, entityID, transactionID string) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txn, ok := m.transactions[scoped(entityID, transactionID)]
	if !ok {
		return nil, notFound("transaction", transactionID)
	}
	return copyTransaction(txn), nil
}

func copyTransaction(txn ledger.Transaction) *ledger.Transaction {
	txn.Entries = append([]ledger.Entry(nil), txn.Entries...)
	return &txn
}

// FindTransactions returns matching transactions ordered by date then ID
func (m *Memory) FindTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found []ledger.Transaction
	for _, txn := range m.transactions {
		if txn.EntityID != filter.EntityID || txn.Deleted {
			continue
		}
		if filter.CurrencyID != "" && txn.CurrencyID != filter.CurrencyID {
			continue
		}
		if txn.Date.Before(filter.From) || txn.Date.After(filter.To) {
			continue
		}
		if !txn.Touches(filter.AccountID) {
			continue
		}
		found = append(found, *copyTransaction(txn))
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].Date.Equal(found[j].Date) {
			return found[i].Date.Before(found[j].Date)
		}
		return found[i].TransactionID < found[j].TransactionID
	})
	return found, nil
}

func (m *Memory) OpeningBalance(ctx context.Context, entityID, accountID, currencyID string, before time.Time) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	if b, ok := m.openings[openingKey{entityID, accountID, currencyID, before.Year()}]; ok {
		total = b.OpeningAmount()
	}
	for _, txn := range m.transactions {
		if txn.EntityID != entityID || txn.Deleted || txn.CurrencyID != currencyID {
			continue
		}
		if !txn.Date.Before(before) {
			continue
		}
		total = total.Add(ledger.Contribution(accountID, txn.Entries))
	}
	return total, nil
}

func (m *Memory) PutEntity(ctx context.Context, entity *ledger.Entity) error {
	if entity.EntityID == "" {
		return errors.NewValidationError("entity ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entity.EntityID] = *entity
	return nil
}

func (m *Memory) PutCurrency(ctx context.Context, currency *ledger.Currency) error {
	if currency.EntityID == "" || currency.CurrencyID == "" {
		return errors.NewValidationError("currency requires entity and currency IDs")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currencies[scoped(currency.EntityID, currency.CurrencyID)] = *currency
	return nil
}

func (m *Memory) PutAccount(ctx context.Context, account *ledger.Account) error {
	if account.EntityID == "" || account.AccountID == "" {
		return errors.NewValidationError("account requires entity and account IDs")
	}
	stored := *account
	if stored.NormalBalance == "" {
		stored.NormalBalance = stored.AccountType.NormalBalance()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[scoped(stored.EntityID, stored.AccountID)] = stored
	return nil
}

func (m *Memory) PutTransaction(ctx context.Context, txn *ledger.Transaction) (*ledger.Transaction, error) {
	if txn.EntityID == "" || txn.CurrencyID == "" {
		return nil, errors.NewValidationError("transaction requires entity and currency IDs")
	}
	if txn.Date.IsZero() {
		return nil, errors.NewValidationError("transaction date is required")
	}

	stored := *txn
	if stored.TransactionID == "" {
		stored.TransactionID = ulid.Make().String()
	}
	stored.Entries = make([]ledger.Entry, len(txn.Entries))
	for i, entry := range txn.Entries {
		if entry.EntryID == "" {
			entry.EntryID = ulid.Make().String()
		}
		entry.TransactionID = stored.TransactionID
		stored.Entries[i] = entry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[scoped(stored.EntityID, stored.TransactionID)] = stored
	return copyTransaction(stored), nil
}

func (m *Memory) PutOpeningBalance(ctx context.Context, balance *ledger.OpeningBalance) error {
	if !balance.Side.Valid() {
		return errors.NewValidationError(fmt.Sprintf("invalid balance side %q", balance.Side))
	}
	stored := *balance
	stored.Amount = stored.Amount.Abs()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openings[openingKey{stored.EntityID, stored.AccountID, stored.CurrencyID, stored.Year}] = stored
	return nil
}

var (
	_ ledger.Repository = (*Memory)(nil)
	_ ledger.Writer     = (*Memory)(nil)
)
