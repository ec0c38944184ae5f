package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	ulid "github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
)

// LedgerStore implements ledger.Repository and ledger.Writer on Postgres.
// Each ledgers row names a post and a folio account; amounts are read as text
// and parsed into decimals.
type LedgerStore struct {
	db     querier
	logger *slog.Logger
}

// NewLedgerStore creates a store on db, usually a *pgxpool.Pool
func NewLedgerStore(db querier, logger *slog.Logger) *LedgerStore {
	return &LedgerStore{db: db, logger: logger}
}

func notFound(err error, what, key, id string) error {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.NewNotFoundError(what+" not found").WithDetail(key, id)
	}
	return errors.NewInternalError("failed to get "+what, err)
}

// GetEntity retrieves an entity by ID
func (s *LedgerStore) GetEntity(ctx context.Context, entityID string) (*ledger.Entity, error) {
	var e ledger.Entity
	err := s.db.QueryRow(ctx, `
		SELECT id, name, currency_id, year_start_month
		FROM entities
		WHERE id = $1`, entityID,
	).Scan(&e.EntityID, &e.Name, &e.CurrencyID, &e.YearStartMonth)
	if err != nil {
		return nil, notFound(err, "entity", "entityId", entityID)
	}
	return &e, nil
}

// GetAccount retrieves an account of the entity
func (s *LedgerStore) GetAccount(ctx context.Context, entityID, accountID string) (*ledger.Account, error) {
	var (
		a                           ledger.Account
		accountType, normalBalance string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, entity_id, name, account_type, normal_balance, COALESCE(currency_id, '')
		FROM accounts
		WHERE entity_id = $1 AND id = $2`, entityID, accountID,
	).Scan(&a.AccountID, &a.EntityID, &a.Name, &accountType, &normalBalance, &a.CurrencyID)
	if err != nil {
		return nil, notFound(err, "account", "accountId", accountID)
	}
	a.AccountType = ledger.AccountType(accountType)
	a.NormalBalance = ledger.Side(normalBalance)
	return &a, nil
}

// GetCurrency retrieves a currency of the entity
func (s *LedgerStore) GetCurrency(ctx context.Context, entityID, currencyID string) (*ledger.Currency, error) {
	var c ledger.Currency
	err := s.db.QueryRow(ctx, `
		SELECT id, entity_id, name, currency_code
		FROM currencies
		WHERE entity_id = $1 AND id = $2`, entityID, currencyID,
	).Scan(&c.CurrencyID, &c.EntityID, &c.Name, &c.CurrencyCode)
	if err != nil {
		return nil, notFound(err, "currency", "currencyId", currencyID)
	}
	return &c, nil
}

// GetTransaction retrieves a transaction with all its entries
func (s *LedgerStore) GetTransaction(ctx context.Context, entityID, transactionID string) (*ledger.Transaction, error) {
	var (
		t       ledger.Transaction
		deleted bool
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, entity_id, currency_id, transaction_date, transaction_no,
		       COALESCE(reference, ''), transaction_type, COALESCE(narration, ''),
		       deleted_at IS NOT NULL
		FROM transactions
		WHERE entity_id = $1 AND id = $2`, entityID, transactionID,
	).Scan(&t.TransactionID, &t.EntityID, &t.CurrencyID, &t.Date, &t.Number, &t.Reference, &t.Type, &t.Narration, &deleted)
	if err != nil {
		return nil, notFound(err, "transaction", "transactionId", transactionID)
	}
	t.Deleted = deleted

	entries, err := s.entries(ctx, []string{t.TransactionID})
	if err != nil {
		return nil, err
	}
	t.Entries = entries[t.TransactionID]
	return &t, nil
}

// FindTransactions selects the distinct live transactions in the window in
// which the account is the post or folio account of at least one ledger row.
func (s *LedgerStore) FindTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT t.id, t.entity_id, t.currency_id, t.transaction_date, t.transaction_no,
		       COALESCE(t.reference, ''), t.transaction_type, COALESCE(t.narration, '')
		FROM transactions t
		JOIN ledgers l ON l.transaction_id = t.id
		WHERE t.deleted_at IS NULL
		  AND t.entity_id = $1
		  AND t.currency_id = $2
		  AND t.transaction_date >= $3
		  AND t.transaction_date <= $4
		  AND (l.post_account = $5 OR l.folio_account = $5)
		ORDER BY t.transaction_date, t.id`,
		filter.EntityID, filter.CurrencyID, filter.From, filter.To, filter.AccountID,
	)
	if err != nil {
		return nil, errors.NewInternalError("failed to query transactions", err)
	}

	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Transaction, error) {
		var t ledger.Transaction
		err := row.Scan(&t.TransactionID, &t.EntityID, &t.CurrencyID, &t.Date, &t.Number, &t.Reference, &t.Type, &t.Narration)
		return t, err
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to read transactions", err)
	}
	if len(txns) == 0 {
		return txns, nil
	}

	ids := make([]string, len(txns))
	for i := range txns {
		ids[i] = txns[i].TransactionID
	}
	entries, err := s.entries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		txns[i].Entries = entries[txns[i].TransactionID]
	}

	s.logger.DebugContext(ctx, "found transactions", "entityId", filter.EntityID, "accountId", filter.AccountID, "transactions", len(txns))
	return txns, nil
}

// entries loads the ledger rows of the given transactions
func (s *LedgerStore) entries(ctx context.Context, transactionIDs []string) (map[string][]ledger.Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, transaction_id, post_account, folio_account, amount::text
		FROM ledgers
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, id`, transactionIDs,
	)
	if err != nil {
		return nil, errors.NewInternalError("failed to query ledger entries", err)
	}

	list, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, errors.NewInternalError("failed to read ledger entries", err)
	}

	out := make(map[string][]ledger.Entry, len(transactionIDs))
	for _, e := range list {
		out[e.TransactionID] = append(out[e.TransactionID], e)
	}
	return out, nil
}

func scanEntry(row pgx.CollectableRow) (ledger.Entry, error) {
	var (
		e      ledger.Entry
		amount string
	)
	if err := row.Scan(&e.EntryID, &e.TransactionID, &e.PostAccountID, &e.FolioAccountID, &amount); err != nil {
		return e, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return e, fmt.Errorf("ledger %s has invalid amount %q: %w", e.EntryID, amount, err)
	}
	e.Amount = value
	return e, nil
}

// OpeningBalance adds the brought-forward balance recorded for the fiscal
// year starting at before to the contributions of every live ledger row
// dated strictly before it.
func (s *LedgerStore) OpeningBalance(ctx context.Context, entityID, accountID, currencyID string, before time.Time) (decimal.Decimal, error) {
	total := decimal.Zero

	var side, amount string
	err := s.db.QueryRow(ctx, `
		SELECT side, amount::text
		FROM balances
		WHERE entity_id = $1 AND account_id = $2 AND currency_id = $3 AND year = $4`,
		entityID, accountID, currencyID, before.Year(),
	).Scan(&side, &amount)
	switch {
	case err == nil:
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, errors.NewInternalError("invalid opening balance amount", err)
		}
		record := ledger.OpeningBalance{Side: ledger.Side(side), Amount: value}
		total = total.Add(record.OpeningAmount())
	case stderrors.Is(err, pgx.ErrNoRows):
	default:
		return decimal.Zero, errors.NewInternalError("failed to get opening balance", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT l.id, l.transaction_id, l.post_account, l.folio_account, l.amount::text
		FROM ledgers l
		JOIN transactions t ON t.id = l.transaction_id
		WHERE t.deleted_at IS NULL
		  AND t.entity_id = $1
		  AND t.currency_id = $2
		  AND t.transaction_date < $3
		  AND (l.post_account = $4 OR l.folio_account = $4)`,
		entityID, currencyID, before, accountID,
	)
	if err != nil {
		return decimal.Zero, errors.NewInternalError("failed to query prior ledger entries", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return decimal.Zero, errors.NewInternalError("failed to read prior ledger entries", err)
	}

	return total.Add(ledger.Contribution(accountID, entries)), nil
}

// PutEntity inserts or replaces an entity
func (s *LedgerStore) PutEntity(ctx context.Context, entity *ledger.Entity) error {
	month := entity.YearStartMonth
	if month < 1 || month > 12 {
		month = 1
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO entities (id, name, currency_id, year_start_month)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, currency_id = EXCLUDED.currency_id, year_start_month = EXCLUDED.year_start_month`,
		entity.EntityID, entity.Name, entity.CurrencyID, month,
	)
	if err != nil {
		return errors.NewInternalError("failed to put entity", err)
	}
	return nil
}

// PutCurrency inserts or replaces a currency
func (s *LedgerStore) PutCurrency(ctx context.Context, currency *ledger.Currency) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO currencies (entity_id, id, name, currency_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id, id) DO UPDATE
		SET name = EXCLUDED.name, currency_code = EXCLUDED.currency_code`,
		currency.EntityID, currency.CurrencyID, currency.Name, currency.CurrencyCode,
	)
	if err != nil {
		return errors.NewInternalError("failed to put currency", err)
	}
	return nil
}

// PutAccount inserts or replaces an account
func (s *LedgerStore) PutAccount(ctx context.Context, account *ledger.Account) error {
	normal := account.NormalBalance
	if !normal.Valid() {
		normal = account.AccountType.NormalBalance()
	}
	var currencyID *string
	if account.CurrencyID != "" {
		currencyID = &account.CurrencyID
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (entity_id, id, name, account_type, normal_balance, currency_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_id, id) DO UPDATE
		SET name = EXCLUDED.name, account_type = EXCLUDED.account_type,
		    normal_balance = EXCLUDED.normal_balance, currency_id = EXCLUDED.currency_id`,
		account.EntityID, account.AccountID, account.Name, string(account.AccountType), string(normal), currencyID,
	)
	if err != nil {
		return errors.NewInternalError("failed to put account", err)
	}
	return nil
}

// PutTransaction writes a transaction and replaces its ledger rows in one
// statement. Missing IDs are generated.
func (s *LedgerStore) PutTransaction(ctx context.Context, txn *ledger.Transaction) (*ledger.Transaction, error) {
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

	var (
		ids     = make([]string, len(txn.Entries))
		posts   = make([]string, len(txn.Entries))
		folios  = make([]string, len(txn.Entries))
		amounts = make([]string, len(txn.Entries))
	)
	for i, e := range txn.Entries {
		if e.EntryID == "" {
			e.EntryID = ulid.Make().String()
		}
		e.TransactionID = stored.TransactionID
		stored.Entries[i] = e

		ids[i], posts[i], folios[i], amounts[i] = e.EntryID, e.PostAccountID, e.FolioAccountID, e.Amount.String()
	}

	var deletedAt *time.Time
	if stored.Deleted {
		now := time.Now().UTC()
		deletedAt = &now
	}

	_, err := s.db.Exec(ctx, `
		WITH txn AS (
			INSERT INTO transactions (id, entity_id, currency_id, transaction_date, transaction_no,
			                          reference, narration, transaction_type, deleted_at)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
			ON CONFLICT (id) DO UPDATE
			SET currency_id = EXCLUDED.currency_id, transaction_date = EXCLUDED.transaction_date,
			    transaction_no = EXCLUDED.transaction_no, reference = EXCLUDED.reference,
			    narration = EXCLUDED.narration, transaction_type = EXCLUDED.transaction_type,
			    deleted_at = EXCLUDED.deleted_at
			RETURNING id
		), cleared AS (
			DELETE FROM ledgers WHERE transaction_id = $1 AND NOT (id = ANY($10))
		)
		INSERT INTO ledgers (id, transaction_id, post_account, folio_account, amount)
		SELECT e.id, txn.id, e.post_account, e.folio_account, e.amount::numeric
		FROM txn, unnest($10::text[], $11::text[], $12::text[], $13::text[]) AS e(id, post_account, folio_account, amount)
		ON CONFLICT (id) DO UPDATE
		SET post_account = EXCLUDED.post_account, folio_account = EXCLUDED.folio_account, amount = EXCLUDED.amount`,
		stored.TransactionID, stored.EntityID, stored.CurrencyID, stored.Date, stored.Number,
		stored.Reference, stored.Narration, stored.Type, deletedAt,
		ids, posts, folios, amounts,
	)
	if err != nil {
		return nil, errors.NewInternalError("failed to put transaction", err)
	}
	return &stored, nil
}

// PutOpeningBalance inserts or replaces a brought-forward balance
func (s *LedgerStore) PutOpeningBalance(ctx context.Context, balance *ledger.OpeningBalance) error {
	if !balance.Side.Valid() {
		return errors.NewValidationError(fmt.Sprintf("invalid balance side %q", balance.Side))
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO balances (entity_id, account_id, currency_id, year, side, amount)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		ON CONFLICT (entity_id, account_id, currency_id, year) DO UPDATE
		SET side = EXCLUDED.side, amount = EXCLUDED.amount`,
		balance.EntityID, balance.AccountID, balance.CurrencyID, balance.Year, string(balance.Side), balance.Amount.Abs().String(),
	)
	if err != nil {
		return errors.NewInternalError("failed to put opening balance", err)
	}
	return nil
}

var (
	_ ledger.Repository = (*LedgerStore)(nil)
	_ ledger.Writer     = (*LedgerStore)(nil)
)
