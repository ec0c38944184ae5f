package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hirosato/account-statements/backend/internal/domain/mcp"
	"github.com/hirosato/account-statements/backend/internal/domain/txtype"
)

// TransactionTypesResource lists the transaction type codes and the labels
// statements print for them
type TransactionTypesResource struct {
	labels txtype.Labels
}

func NewTransactionTypesResource(labels txtype.Labels) *TransactionTypesResource {
	if labels == nil {
		labels = txtype.Defaults()
	}
	return &TransactionTypesResource{
		labels: labels,
	}
}

type transactionType struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func (r *TransactionTypesResource) GetURI() string {
	return "statement://transaction-types"
}

func (r *TransactionTypesResource) GetName() string {
	return "Transaction Types"
}

func (r *TransactionTypesResource) GetDescription() string {
	return "Transaction type codes used in the type column of account statements"
}

func (r *TransactionTypesResource) GetMimeType() string {
	return "application/json"
}

func (r *TransactionTypesResource) Read(ctx context.Context) (*mcp.ReadResourceResult, error) {
	types := make([]transactionType, 0, len(r.labels))
	for _, code := range r.labels.Codes() {
		types = append(types, transactionType{Code: code, Label: r.labels.Label(code)})
	}

	body, err := json.Marshal(types)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction types: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []mcp.ResourceContent{
			{
				URI:      r.GetURI(),
				MimeType: r.GetMimeType(),
				Text:     string(body),
			},
		},
	}, nil
}
