// Package store opens the configured ledger store and assembles the
// statement builder on top of it.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hirosato/account-statements/backend/internal/common/config"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
	"github.com/hirosato/account-statements/backend/internal/domain/statement"
	"github.com/hirosato/account-statements/backend/internal/domain/txtype"
	ddbclient "github.com/hirosato/account-statements/backend/internal/platform/dynamodb/client"
	"github.com/hirosato/account-statements/backend/internal/platform/dynamodb/repository"
	"github.com/hirosato/account-statements/backend/internal/platform/postgres"
	rediscache "github.com/hirosato/account-statements/backend/internal/platform/redis"
)

// Store is an open ledger store
type Store struct {
	Repository ledger.Repository
	Writer     ledger.Writer

	migrate func(context.Context) error
	close   func()
}

// Migrate prepares the schema. DynamoDB tables are provisioned outside the
// application, so it does nothing there.
func (s *Store) Migrate(ctx context.Context) error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(ctx)
}

// Close releases the store's connections
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the store selected by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverDynamoDB:
		client, err := ddbclient.NewDynamoDBClient(ctx, cfg.AWSRegion, logger)
		if err != nil {
			return nil, err
		}
		repo := repository.NewFactory(client, cfg.DynamoDBTableName, logger).LedgerRepository()
		return &Store{Repository: repo, Writer: repo}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		ledgerStore := postgres.NewLedgerStore(pool, logger)
		return &Store{
			Repository: ledgerStore,
			Writer:     ledgerStore,
			migrate: func(ctx context.Context) error {
				return postgres.Migrate(ctx, pool)
			},
			close: pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Builder is a statement builder with its resources
type Builder struct {
	statement.Builder
	Labels txtype.Labels

	close func()
}

// Close releases the cache connection, if any
func (b *Builder) Close() {
	if b.close != nil {
		b.close()
	}
}

// NewBuilder creates the statement service over repo, wrapped in the Redis
// cache when one is configured
func NewBuilder(ctx context.Context, cfg *config.Config, repo ledger.Repository, logger *slog.Logger, opts ...statement.Option) (*Builder, error) {
	labels, err := txtype.Load(cfg.TransactionTypesFile)
	if err != nil {
		return nil, err
	}

	service := statement.NewService(repo, labels, logger, opts...)
	if !cfg.CacheEnabled() {
		return &Builder{Builder: service, Labels: labels}, nil
	}

	client, err := rediscache.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	logger.Info("statement cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.StatementCacheTTL)
	return &Builder{
		Builder: rediscache.NewStatementCache(service, client, cfg.StatementCacheTTL, logger),
		Labels:  labels,
		close:   func() { _ = client.Close() },
	}, nil
}
