package repository

import (
	"log/slog"

	"github.com/hirosato/account-statements/backend/internal/platform/dynamodb/client"
)

// Factory creates repository instances
type Factory struct {
	client    client.Client
	tableName string
	logger    *slog.Logger
}

// NewFactory creates a new repository factory
func NewFactory(client client.Client, tableName string, logger *slog.Logger) *Factory {
	return &Factory{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// LedgerRepository returns the ledger store backed by the table
func (f *Factory) LedgerRepository() *DynamoDBLedgerRepository {
	return NewDynamoDBLedgerRepository(f.client, f.tableName, f.logger)
}
