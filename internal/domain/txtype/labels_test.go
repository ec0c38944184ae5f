package txtype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels_Label(t *testing.T) {
	labels := Defaults()

	assert.Equal(t, "Cash Sale", labels.Label(CashSale))
	assert.Equal(t, "Journal Entry", labels.Label(JournalEntry))
	assert.Equal(t, "XX", labels.Label("XX"))
}

func TestParse(t *testing.T) {
	t.Run("overrides and extends defaults", func(t *testing.T) {
		labels, err := Parse([]byte("transactions:\n  CS: Counter Sale\n  PR: Payroll Run\n"))
		require.NoError(t, err)

		assert.Equal(t, "Counter Sale", labels.Label(CashSale))
		assert.Equal(t, "Payroll Run", labels.Label("PR"))
		assert.Equal(t, "Supplier Bill", labels.Label(SupplierBill))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("transactions: [unterminated"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		labels, err := Load("")
		require.NoError(t, err)
		assert.Len(t, labels, 10)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "types.yaml")
		require.NoError(t, os.WriteFile(path, []byte("transactions:\n  JN: Manual Journal\n"), 0o600))

		labels, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Manual Journal", labels.Label(JournalEntry))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLabels_Codes(t *testing.T) {
	codes := Labels{"b": "B", "a": "A"}.Codes()
	assert.Equal(t, []string{"a", "b"}, codes)
}
