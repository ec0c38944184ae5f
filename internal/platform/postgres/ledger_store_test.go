package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
)

// fakeRows replays canned rows through the pgx.Rows interface
type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.rows[r.pos-1], dest)
}

func scanInto(row []any, dest []any) error {
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d columns into %d targets", len(row), len(dest))
	}
	for i, value := range row {
		target := reflect.ValueOf(dest[i]).Elem()
		v := reflect.ValueOf(value)
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan: column %d is %T, target is %s", i, value, target.Type())
		}
		target.Set(v)
	}
	return nil
}

// fakeRow is the pgx.Row returned by QueryRow
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

type call struct {
	sql  string
	args []any
}

// fakeDB answers queries whose SQL contains a registered fragment
type fakeDB struct {
	rows    map[string][][]any
	row     map[string][]any
	failing map[string]error
	execs   []call
	queries []call
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:    map[string][][]any{},
		row:     map[string][]any{},
		failing: map[string]error{},
	}
}

func (f *fakeDB) lookupErr(sql string) error {
	for fragment, err := range f.failing {
		if strings.Contains(sql, fragment) {
			return err
		}
	}
	return nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, call{sql, args})
	if err := f.lookupErr(sql); err != nil {
		return nil, err
	}
	for fragment, rows := range f.rows {
		if strings.Contains(sql, fragment) {
			return &fakeRows{rows: rows}, nil
		}
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, call{sql, args})
	if err := f.lookupErr(sql); err != nil {
		return fakeRow{err: err}
	}
	for fragment, values := range f.row {
		if strings.Contains(sql, fragment) {
			return fakeRow{values: values}
		}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, call{sql, args})
	if err := f.lookupErr(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGetEntity(t *testing.T) {
	db := newFakeDB()
	db.row["FROM entities"] = []any{"ent-1", "Acme Ltd", "usd", 4}
	store := NewLedgerStore(db, slog.Default())

	entity, err := store.GetEntity(context.Background(), "ent-1")
	require.NoError(t, err)
	assert.Equal(t, &ledger.Entity{EntityID: "ent-1", Name: "Acme Ltd", CurrencyID: "usd", YearStartMonth: 4}, entity)
	assert.Equal(t, []any{"ent-1"}, db.queries[0].args)
}

func TestLookupMisses(t *testing.T) {
	store := NewLedgerStore(newFakeDB(), slog.Default())
	ctx := context.Background()

	_, err := store.GetEntity(ctx, "ent-1")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	_, err = store.GetAccount(ctx, "ent-1", "bank")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	_, err = store.GetCurrency(ctx, "ent-1", "usd")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	_, err = store.GetTransaction(ctx, "ent-1", "t1")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestLookupFailureIsInternal(t *testing.T) {
	db := newFakeDB()
	db.failing["FROM accounts"] = fmt.Errorf("connection reset")
	store := NewLedgerStore(db, slog.Default())

	_, err := store.GetAccount(context.Background(), "ent-1", "bank")
	require.Error(t, err)
	assert.False(t, stderrors.Is(err, errors.ErrNotFound))

	var appErr errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.CodeInternal, appErr.Code)
}

func TestGetAccount(t *testing.T) {
	db := newFakeDB()
	db.row["FROM accounts"] = []any{"sales", "ent-1", "Sales", "income", "credit", ""}
	store := NewLedgerStore(db, slog.Default())

	account, err := store.GetAccount(context.Background(), "ent-1", "sales")
	require.NoError(t, err)
	assert.Equal(t, ledger.Income, account.AccountType)
	assert.Equal(t, ledger.Credit, account.NormalBalance)
}

func TestFindTransactions(t *testing.T) {
	db := newFakeDB()
	db.rows["SELECT DISTINCT"] = [][]any{
		{"t1", "ent-1", "usd", date("2024-01-05"), "INV-1", "", "IN", "January invoice"},
		{"t2", "ent-1", "usd", date("2024-01-09"), "RC-1", "bank ref", "RC", ""},
	}
	db.rows["WHERE transaction_id = ANY"] = [][]any{
		{"e1", "t1", "receivable", "sales", "250.00"},
		{"e2", "t2", "bank", "receivable", "100.0000"},
		{"e3", "t2", "fees", "receivable", "-2.5"},
	}
	store := NewLedgerStore(db, slog.Default())

	filter := ledger.TransactionFilter{
		EntityID:   "ent-1",
		AccountID:  "receivable",
		CurrencyID: "usd",
		From:       date("2024-01-01"),
		To:         date("2024-01-31"),
	}
	txns, err := store.FindTransactions(context.Background(), filter)
	require.NoError(t, err)

	require.Len(t, txns, 2)
	assert.Equal(t, "January invoice", txns[0].Narration)
	require.Len(t, txns[0].Entries, 1)
	require.Len(t, txns[1].Entries, 2)
	assert.Equal(t, "250", ledger.Contribution("receivable", txns[0].Entries).String())
	assert.Equal(t, "-97.5", ledger.Contribution("receivable", txns[1].Entries).String())

	assert.Equal(t, []any{"ent-1", "usd", filter.From, filter.To, "receivable"}, db.queries[0].args)
	assert.Equal(t, []any{[]string{"t1", "t2"}}, db.queries[1].args)
}

func TestFindTransactions_Empty(t *testing.T) {
	db := newFakeDB()
	store := NewLedgerStore(db, slog.Default())

	txns, err := store.FindTransactions(context.Background(), ledger.TransactionFilter{EntityID: "ent-1"})
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.Len(t, db.queries, 1)
}

func TestFindTransactions_BadAmount(t *testing.T) {
	db := newFakeDB()
	db.rows["SELECT DISTINCT"] = [][]any{{"t1", "ent-1", "usd", date("2024-01-05"), "1", "", "JN", ""}}
	db.rows["WHERE transaction_id = ANY"] = [][]any{{"e1", "t1", "a", "b", "twelve"}}
	store := NewLedgerStore(db, slog.Default())

	_, err := store.FindTransactions(context.Background(), ledger.TransactionFilter{EntityID: "ent-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
}

func TestOpeningBalance(t *testing.T) {
	t.Run("brought forward plus prior postings", func(t *testing.T) {
		db := newFakeDB()
		db.row["FROM balances"] = []any{"credit", "40.0000"}
		db.rows["t.transaction_date < $3"] = [][]any{
			{"e1", "t1", "bank", "sales", "100"},
			{"e2", "t2", "sales", "bank", "30"},
		}
		store := NewLedgerStore(db, slog.Default())

		before := date("2024-04-01")
		balance, err := store.OpeningBalance(context.Background(), "ent-1", "bank", "usd", before)
		require.NoError(t, err)
		assert.Equal(t, "30", balance.String())
		assert.Equal(t, []any{"ent-1", "bank", "usd", 2024}, db.queries[0].args)
		assert.Equal(t, []any{"ent-1", "usd", before, "bank"}, db.queries[1].args)
	})

	t.Run("no history", func(t *testing.T) {
		store := NewLedgerStore(newFakeDB(), slog.Default())

		balance, err := store.OpeningBalance(context.Background(), "ent-1", "bank", "usd", date("2024-01-01"))
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})
}

func TestPutTransaction(t *testing.T) {
	db := newFakeDB()
	store := NewLedgerStore(db, slog.Default())

	stored, err := store.PutTransaction(context.Background(), &ledger.Transaction{
		EntityID:   "ent-1",
		CurrencyID: "usd",
		Date:       date("2024-02-01"),
		Number:     "JN-1",
		Type:       "JN",
		Entries: []ledger.Entry{
			{PostAccountID: "bank", FolioAccountID: "sales", Amount: decimal.RequireFromString("12.34")},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stored.TransactionID)
	require.Len(t, stored.Entries, 1)
	assert.Equal(t, stored.TransactionID, stored.Entries[0].TransactionID)

	require.Len(t, db.execs, 1)
	args := db.execs[0].args
	assert.Equal(t, stored.TransactionID, args[0])
	assert.Nil(t, args[8])
	assert.Equal(t, []string{stored.Entries[0].EntryID}, args[9])
	assert.Equal(t, []string{"12.34"}, args[12])
}

func TestPutValidation(t *testing.T) {
	db := newFakeDB()
	store := NewLedgerStore(db, slog.Default())

	_, err := store.PutTransaction(context.Background(), &ledger.Transaction{EntityID: "ent-1", CurrencyID: "usd"})
	assert.Error(t, err)
	err = store.PutOpeningBalance(context.Background(), &ledger.OpeningBalance{Side: "up"})
	assert.Error(t, err)
	assert.Empty(t, db.execs)
}

func TestPutAccountDefaultsNormalBalance(t *testing.T) {
	db := newFakeDB()
	store := NewLedgerStore(db, slog.Default())

	require.NoError(t, store.PutAccount(context.Background(), &ledger.Account{EntityID: "ent-1", AccountID: "loan", Name: "Loan", AccountType: ledger.Liability}))
	require.Len(t, db.execs, 1)
	assert.Equal(t, "credit", db.execs[0].args[4])
	assert.Nil(t, db.execs[0].args[5])
}

func TestMigrate(t *testing.T) {
	db := newFakeDB()
	require.NoError(t, Migrate(context.Background(), db))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS ledgers")
}
