package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the read side of the ledger store
type Repository interface {
	// Get an entity by ID
	GetEntity(ctx context.Context, entityID string) (*Entity, error)

	// Get an account belonging to the entity
	GetAccount(ctx context.Context, entityID string, accountID string) (*Account, error)

	// Get a currency belonging to the entity
	GetCurrency(ctx context.Context, entityID string, currencyID string) (*Currency, error)

	// Get a transaction with all its entries
	GetTransaction(ctx context.Context, entityID string, transactionID string) (*Transaction, error)

	// Find the distinct, non-deleted transactions in which the account appears
	// as post or folio account. Each transaction carries at least the entries
	// touching the account.
	FindTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)

	// Sum the account's brought-forward balance for the fiscal year starting at
	// before plus every contribution dated strictly before it.
	OpeningBalance(ctx context.Context, entityID, accountID, currencyID string, before time.Time) (decimal.Decimal, error)
}

// Writer loads ledger data into a store. Used for fixtures and migrations,
// never by statement generation.
type Writer interface {
	PutEntity(ctx context.Context, entity *Entity) error
	PutCurrency(ctx context.Context, currency *Currency) error
	PutAccount(ctx context.Context, account *Account) error
	PutTransaction(ctx context.Context, txn *Transaction) (*Transaction, error)
	PutOpeningBalance(ctx context.Context, balance *OpeningBalance) error
}
