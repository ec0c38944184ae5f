package redis

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/account-statements/backend/internal/domain/statement"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

type memoryClient struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newMemoryClient() *memoryClient {
	return &memoryClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.failGet != nil {
		return redis.NewStringResult("", m.failGet)
	}
	val, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (m *memoryClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.failSet != nil {
		return redis.NewStatusResult("", m.failSet)
	}
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	default:
		m.values[key] = fmt.Sprint(v)
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type countingBuilder struct {
	builds int
	err    error
}

func (b *countingBuilder) BuildStatement(ctx context.Context, tenantCtx *tenant.TenantContext, req statement.Request) (*statement.Statement, error) {
	b.builds++
	if b.err != nil {
		return nil, b.err
	}
	return &statement.Statement{
		AccountID: req.AccountID,
		Account:   "Bank",
		Period: statement.Period{
			StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
		},
		Balances: statement.Balances{Opening: decimal.NewFromInt(100), Closing: decimal.RequireFromString("150.25")},
		Transactions: []statement.Row{
			{ID: "t1", Debit: decimal.RequireFromString("50.25"), Credit: decimal.Zero, Balance: decimal.RequireFromString("150.25")},
		},
	}, nil
}

func (b *countingBuilder) Contribution(ctx context.Context, tenantCtx *tenant.TenantContext, accountID, transactionID string) (decimal.Decimal, error) {
	return decimal.NewFromInt(7), nil
}

var cacheTenant = &tenant.TenantContext{TenantID: "ent-1"}

func closedPeriod() statement.Request {
	return statement.Request{AccountID: "bank", StartDate: "2024-01-01", EndDate: "2024-01-31"}
}

func TestStatementCache_ReadThrough(t *testing.T) {
	client := newMemoryClient()
	builder := &countingBuilder{}
	cache := NewStatementCache(builder, client, time.Minute, slog.Default())

	first, err := cache.BuildStatement(context.Background(), cacheTenant, closedPeriod())
	require.NoError(t, err)
	second, err := cache.BuildStatement(context.Background(), cacheTenant, closedPeriod())
	require.NoError(t, err)

	assert.Equal(t, 1, builder.builds)
	assert.True(t, first.Balances.Closing.Equal(second.Balances.Closing))
	require.Len(t, second.Transactions, 1)
	assert.Equal(t, "50.25", second.Transactions[0].Debit.String())
	assert.True(t, first.Period.EndDate.Equal(second.Period.EndDate))

	key, ok := cacheKey(cacheTenant, closedPeriod(), time.Now())
	require.True(t, ok)
	assert.Equal(t, "statement:entity:ent-1:account:bank:currency:default:2024-01-01:2024-01-31", key)
	assert.Equal(t, time.Minute, client.ttls[key])
}

func TestStatementCache_OpenPeriodsBypass(t *testing.T) {
	client := newMemoryClient()
	builder := &countingBuilder{}
	cache := NewStatementCache(builder, client, 0, slog.Default())

	req := statement.Request{AccountID: "bank", StartDate: "2024-01-01"}
	for i := 0; i < 2; i++ {
		_, err := cache.BuildStatement(context.Background(), cacheTenant, req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, builder.builds)
	assert.Empty(t, client.values)
}

func TestStatementCache_FuturePeriodsBypass(t *testing.T) {
	client := newMemoryClient()
	builder := &countingBuilder{}
	cache := NewStatementCache(builder, client, time.Minute, slog.Default())
	cache.now = func() time.Time { return time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC) }

	requests := []statement.Request{
		closedPeriod(),
		{AccountID: "bank", StartDate: "2024-01-01", EndDate: "2099-12-31"},
		{AccountID: "bank", StartDate: "2024-01-01", EndDate: "2024-01-31T20:00:00Z"},
		{AccountID: "bank", StartDate: "2024-01-01", EndDate: "31/01/2024"},
	}
	for _, req := range requests {
		for i := 0; i < 2; i++ {
			_, err := cache.BuildStatement(context.Background(), cacheTenant, req)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 8, builder.builds)
	assert.Empty(t, client.values)

	cache.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	for i := 0; i < 2; i++ {
		_, err := cache.BuildStatement(context.Background(), cacheTenant, closedPeriod())
		require.NoError(t, err)
	}
	assert.Equal(t, 9, builder.builds)
	assert.Len(t, client.values, 1)
}

func TestClosedBy(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, closedBy("2024-03-09", now))
	assert.False(t, closedBy("2024-03-10", now))
	assert.True(t, closedBy("2024-03-10T11:59:59Z", now))
	assert.False(t, closedBy("2024-03-10T12:00:00Z", now))
	assert.False(t, closedBy("soon", now))
}

func TestStatementCache_TenantsAreSeparate(t *testing.T) {
	builder := &countingBuilder{}
	cache := NewStatementCache(builder, newMemoryClient(), time.Minute, slog.Default())

	_, err := cache.BuildStatement(context.Background(), cacheTenant, closedPeriod())
	require.NoError(t, err)
	_, err = cache.BuildStatement(context.Background(), &tenant.TenantContext{TenantID: "ent-2"}, closedPeriod())
	require.NoError(t, err)
	assert.Equal(t, 2, builder.builds)
}

func TestStatementCache_FailuresFallBack(t *testing.T) {
	client := newMemoryClient()
	client.failGet = fmt.Errorf("connection refused")
	client.failSet = fmt.Errorf("connection refused")
	builder := &countingBuilder{}
	cache := NewStatementCache(builder, client, time.Minute, slog.Default())

	stmt, err := cache.BuildStatement(context.Background(), cacheTenant, closedPeriod())
	require.NoError(t, err)
	assert.Equal(t, "Bank", stmt.Account)
	assert.Equal(t, 1, builder.builds)
}

func TestStatementCache_CorruptEntryIsRebuilt(t *testing.T) {
	client := newMemoryClient()
	key, _ := cacheKey(cacheTenant, closedPeriod(), time.Now())
	client.values[key] = "{not json"
	builder := &countingBuilder{}
	cache := NewStatementCache(builder, client, time.Minute, slog.Default())

	_, err := cache.BuildStatement(context.Background(), cacheTenant, closedPeriod())
	require.NoError(t, err)
	assert.Equal(t, 1, builder.builds)
	assert.NotEqual(t, "{not json", client.values[key])
}

func TestStatementCache_ErrorsAreNotCached(t *testing.T) {
	client := newMemoryClient()
	builder := &countingBuilder{err: fmt.Errorf("boom")}
	cache := NewStatementCache(builder, client, time.Minute, slog.Default())

	_, err := cache.BuildStatement(context.Background(), cacheTenant, closedPeriod())
	require.Error(t, err)
	assert.Empty(t, client.values)
}

func TestStatementCache_ContributionPassesThrough(t *testing.T) {
	cache := NewStatementCache(&countingBuilder{}, newMemoryClient(), time.Minute, slog.Default())

	got, err := cache.Contribution(context.Background(), cacheTenant, "bank", "t1")
	require.NoError(t, err)
	assert.Equal(t, "7", got.String())
}
