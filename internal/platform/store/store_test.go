package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/account-statements/backend/internal/common/config"
	"github.com/hirosato/account-statements/backend/internal/domain/statement"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "sqlite"}, discardLogger())
	assert.ErrorContains(t, err, `unknown store driver "sqlite"`)
}

func TestStore_NoopLifecycle(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Migrate(context.Background()))
	s.Close()
}

func TestNewBuilder_WithoutCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transactions:\n  JN: Manual Journal\n"), 0o600))

	b, err := NewBuilder(context.Background(), &config.Config{TransactionTypesFile: path}, nil, discardLogger())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &statement.Service{}, b.Builder)
	assert.Equal(t, "Manual Journal", b.Labels.Label("JN"))
	assert.Equal(t, "Cash Sale", b.Labels.Label("CS"))
}

func TestNewBuilder_MissingLabelsFile(t *testing.T) {
	_, err := NewBuilder(context.Background(), &config.Config{TransactionTypesFile: filepath.Join(t.TempDir(), "missing.yaml")}, nil, discardLogger())
	assert.Error(t, err)
}
