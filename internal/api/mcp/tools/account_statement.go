package tools

import (
	"context"
	"encoding/json"

	"github.com/hirosato/account-statements/backend/internal/domain/mcp"
	"github.com/hirosato/account-statements/backend/internal/domain/statement"
)

// AccountStatementTool returns the statement of one account for a period
type AccountStatementTool struct {
	builder statement.Builder
}

func NewAccountStatementTool(builder statement.Builder) *AccountStatementTool {
	return &AccountStatementTool{
		builder: builder,
	}
}

func (t *AccountStatementTool) GetName() string {
	return "get-account-statement"
}

func (t *AccountStatementTool) GetDescription() string {
	return "Returns the statement of an account for a period: opening balance, every transaction that posted to the account with its debit, credit and running balance, and the closing balance"
}

func (t *AccountStatementTool) GetInputSchema() mcp.JSONSchema {
	return mcp.JSONSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"accountId": map[string]string{
				"type":        "string",
				"description": "The account to report on",
			},
			"currencyId": map[string]string{
				"type":        "string",
				"description": "Currency of the transactions to include (default: the entity's base currency)",
			},
			"startDate": map[string]string{
				"type":        "string",
				"description": "First day of the period, YYYY-MM-DD or RFC3339 (default: start of the current fiscal year)",
			},
			"endDate": map[string]string{
				"type":        "string",
				"description": "Last day of the period, YYYY-MM-DD or RFC3339 (default: now)",
			},
		},
		Required: []string{"accountId"},
	}
}

func (t *AccountStatementTool) Execute(ctx context.Context, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	var req statement.Request
	if err := json.Unmarshal(arguments, &req); err != nil {
		return errorResult("Error parsing arguments: %v", err), nil
	}

	stmt, err := t.builder.BuildStatement(ctx, tenantFromContext(ctx), req)
	if err != nil {
		return nil, err
	}

	return jsonResult(stmt)
}
