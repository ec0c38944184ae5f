// Package redis caches generated statements.
package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/statement"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

// DefaultTTL applies when NewStatementCache is given a non-positive TTL
const DefaultTTL = 5 * time.Minute

// cacheClient is the part of *redis.Client the cache uses
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// StatementCache is a read-through cache in front of a statement.Builder.
// Only closed periods are cached: both dates explicit and the end date
// already past. Cache failures fall back to the builder.
type StatementCache struct {
	next   statement.Builder
	client cacheClient
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewStatementCache wraps next with a cache stored in client
func NewStatementCache(next statement.Builder, client cacheClient, ttl time.Duration, logger *slog.Logger) *StatementCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatementCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// NewClient connects to the Redis server at addr
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// closedBy reports whether the period ending at end is over at now. A
// date-only end covers its whole day. Unparseable dates are never closed.
func closedBy(end string, now time.Time) bool {
	if day, err := time.ParseInLocation(time.DateOnly, end, time.UTC); err == nil {
		return !now.Before(day.AddDate(0, 0, 1))
	}
	t, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return false
	}
	return t.Before(now)
}

// cacheKey identifies a statement request; ok is false for uncacheable ones
func cacheKey(tenantCtx *tenant.TenantContext, req statement.Request, now time.Time) (string, bool) {
	if tenantCtx == nil || tenantCtx.TenantID == "" {
		return "", false
	}
	start, end := strings.TrimSpace(req.StartDate), strings.TrimSpace(req.EndDate)
	if start == "" || end == "" || strings.TrimSpace(req.AccountID) == "" {
		return "", false
	}
	if !closedBy(end, now) {
		return "", false
	}
	currency := strings.TrimSpace(req.CurrencyID)
	if currency == "" {
		currency = "default"
	}
	return fmt.Sprintf("statement:entity:%s:account:%s:currency:%s:%s:%s",
		tenantCtx.TenantID, strings.TrimSpace(req.AccountID), currency, start, end), true
}

// BuildStatement returns a cached statement or builds and caches one
func (c *StatementCache) BuildStatement(ctx context.Context, tenantCtx *tenant.TenantContext, req statement.Request) (*statement.Statement, error) {
	key, ok := cacheKey(tenantCtx, req, c.now())
	if !ok {
		return c.next.BuildStatement(ctx, tenantCtx, req)
	}

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var stmt statement.Statement
		if err := json.Unmarshal([]byte(val), &stmt); err == nil {
			c.logger.DebugContext(ctx, "statement cache hit", "key", key)
			return &stmt, nil
		}
		c.logger.WarnContext(ctx, "discarding unreadable cached statement", "key", key)
	case stderrors.Is(err, redis.Nil):
	default:
		c.logger.WarnContext(ctx, "statement cache unavailable", "key", key, "error", err)
	}

	stmt, err := c.next.BuildStatement(ctx, tenantCtx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(stmt)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode statement for cache", "key", key, "error", err)
		return stmt, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to cache statement", "key", key, "error", err)
	}
	return stmt, nil
}

// Contribution is not cached
func (c *StatementCache) Contribution(ctx context.Context, tenantCtx *tenant.TenantContext, accountID, transactionID string) (decimal.Decimal, error) {
	return c.next.Contribution(ctx, tenantCtx, accountID, transactionID)
}

var _ statement.Builder = (*StatementCache)(nil)
