package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hirosato/account-statements/backend/internal/domain/mcp"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.ToolResultContent{
			{
				Type: "text",
				Text: text,
			},
		},
	}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	result := textResult(fmt.Sprintf(format, args...))
	result.IsError = true
	return result
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return textResult(string(body)), nil
}

// tenantFromContext returns the caller's tenant or nil. The builder rejects
// a nil tenant with a tenant error.
func tenantFromContext(ctx context.Context) *tenant.TenantContext {
	tenantCtx, _ := tenant.FromContext(ctx)
	return tenantCtx
}
