package tools

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
	"github.com/hirosato/account-statements/backend/internal/domain/mcp"
	"github.com/hirosato/account-statements/backend/internal/domain/statement"
)

// TransactionContributionTool reports the net effect of one transaction on
// one account
type TransactionContributionTool struct {
	builder statement.Builder
}

func NewTransactionContributionTool(builder statement.Builder) *TransactionContributionTool {
	return &TransactionContributionTool{
		builder: builder,
	}
}

// ContributionResult is the tool output
type ContributionResult struct {
	AccountID     string          `json:"accountId"`
	TransactionID string          `json:"transactionId"`
	Contribution  decimal.Decimal `json:"contribution"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

func (t *TransactionContributionTool) GetName() string {
	return "get-transaction-contribution"
}

func (t *TransactionContributionTool) GetDescription() string {
	return "Returns the signed net effect of a transaction on an account. Positive values are debits, negative values credits"
}

func (t *TransactionContributionTool) GetInputSchema() mcp.JSONSchema {
	return mcp.JSONSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"accountId": map[string]string{
				"type":        "string",
				"description": "The account to measure",
			},
			"transactionId": map[string]string{
				"type":        "string",
				"description": "The transaction to inspect",
			},
		},
		Required: []string{"accountId", "transactionId"},
	}
}

func (t *TransactionContributionTool) Execute(ctx context.Context, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	var args struct {
		AccountID     string `json:"accountId"`
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return errorResult("Error parsing arguments: %v", err), nil
	}

	contribution, err := t.builder.Contribution(ctx, tenantFromContext(ctx), args.AccountID, args.TransactionID)
	if err != nil {
		return nil, err
	}

	debit, credit := ledger.Split(contribution)
	return jsonResult(ContributionResult{
		AccountID:     args.AccountID,
		TransactionID: args.TransactionID,
		Contribution:  contribution,
		Debit:         debit,
		Credit:        credit,
	})
}
