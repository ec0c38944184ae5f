package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/account-statements/backend/internal/domain/statement"
)

func TestRenderText(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	stmt := &statement.Statement{
		AccountID: "cash",
		Account:   "Cash",
		Currency:  "Yen",
		Entity:    "Kabushiki",
		Period: statement.Period{
			StartDate:       start,
			EndDate:         start.AddDate(0, 1, -1),
			FiscalYearStart: start,
		},
		Balances: statement.Balances{
			Opening: decimal.NewFromInt(10),
			Closing: decimal.RequireFromString("12.5"),
		},
		Totals: statement.Totals{
			Debit:  decimal.RequireFromString("2.5"),
			Credit: decimal.Zero,
		},
		Transactions: []statement.Row{{
			ID:        "r1",
			Date:      start.AddDate(0, 0, 2),
			Number:    "7",
			Type:      "Journal",
			Narration: "float",
			Debit:     decimal.RequireFromString("2.5"),
			Credit:    decimal.Zero,
			Balance:   decimal.RequireFromString("12.5"),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, renderText(&buf, stmt))
	out := buf.String()

	assert.Contains(t, out, "Account:  Cash (cash)")
	assert.Contains(t, out, "opening balance at 2024-04-01")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var rowLine string
	for _, line := range lines {
		if strings.Contains(line, "2024-04-03") {
			rowLine = line
		}
	}
	require.NotEmpty(t, rowLine)
	assert.Contains(t, rowLine, "Journal")
	assert.Contains(t, rowLine, "2.50")
	assert.Contains(t, rowLine, "12.50")
	assert.Contains(t, lines[len(lines)-1], "Closing balance")
	assert.Contains(t, lines[len(lines)-1], "12.50")
}

func TestBlankZero(t *testing.T) {
	assert.Equal(t, "", blankZero(decimal.Zero))
	assert.Equal(t, "3.10", blankZero(decimal.RequireFromString("3.1")))
}
