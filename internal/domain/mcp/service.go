package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
)

const jsonRPCVersion = "2.0"

const instructions = "Use get-account-statement to read an account's opening balance, transactions and closing balance for a period, " +
	"and get-transaction-contribution to see how one transaction moved an account. " +
	"Amounts are decimal strings; positive contributions are debits. " +
	"The statement://transaction-types resource lists the transaction type labels."

// HTTPResponse pairs a JSON-RPC response with the HTTP status to send it with.
// Notifications are answered with 202 and no body.
type HTTPResponse struct {
	JSONRPCResponse JSONRPCResponse
	StatusCode      int
}

// HasBody reports whether the JSON-RPC response should be written
func (r HTTPResponse) HasBody() bool {
	return r.StatusCode != http.StatusAccepted
}

// NewSuccessHTTPResponse creates a successful HTTP response with JSON-RPC result
func NewSuccessHTTPResponse(id json.RawMessage, result interface{}, statusCode int) HTTPResponse {
	return HTTPResponse{
		JSONRPCResponse: JSONRPCResponse{
			JSONRPC: jsonRPCVersion,
			ID:      id,
			Result:  result,
		},
		StatusCode: statusCode,
	}
}

// NewErrorHTTPResponse creates an error HTTP response with JSON-RPC error
func NewErrorHTTPResponse(id json.RawMessage, code int, message string, data interface{}, statusCode int) HTTPResponse {
	return HTTPResponse{
		JSONRPCResponse: JSONRPCResponse{
			JSONRPC: jsonRPCVersion,
			ID:      id,
			Error: &JSONRPCError{
				Code:    code,
				Message: message,
				Data:    data,
			},
		},
		StatusCode: statusCode,
	}
}

func accepted() HTTPResponse {
	return HTTPResponse{StatusCode: http.StatusAccepted}
}

type methodHandler func(ctx context.Context, request JSONRPCRequest) HTTPResponse

// Service serves the statement tools and resources over MCP. It keeps no
// session state, so any Lambda instance can answer any request.
type Service struct {
	logger     *slog.Logger
	serverInfo Implementation
	registry   *HandlerRegistry
	methods    map[string]methodHandler
}

// NewService creates a new MCP service
func NewService(logger *slog.Logger, registry *HandlerRegistry) *Service {
	s := &Service{
		logger: logger,
		serverInfo: Implementation{
			Name:    "account-statements-mcp-server",
			Title:   "Account statements for double-entry ledgers.",
			Version: "1.0.0",
		},
		registry: registry,
	}
	s.methods = map[string]methodHandler{
		"initialize":     s.initialize,
		"ping":           s.ping,
		"resources/list": s.listResources,
		"resources/read": s.readResource,
		"tools/list":     s.listTools,
		"tools/call":     s.callTool,
	}
	return s
}

// HandleRequest processes a JSON-RPC request
func (s *Service) HandleRequest(ctx context.Context, request JSONRPCRequest) HTTPResponse {
	s.logger.Info("MCP request received", "method", request.Method)

	if request.JSONRPC != "" && request.JSONRPC != jsonRPCVersion {
		return NewErrorHTTPResponse(request.ID, InvalidRequest, fmt.Sprintf("Unsupported jsonrpc version %q", request.JSONRPC), nil, http.StatusOK)
	}
	// notifications/initialized, notifications/cancelled and the like
	if strings.HasPrefix(request.Method, "notifications/") {
		return accepted()
	}

	handler, ok := s.methods[request.Method]
	if !ok {
		if request.IsNotification() {
			return accepted()
		}
		return NewErrorHTTPResponse(request.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", request.Method), nil, http.StatusOK)
	}
	return handler(ctx, request)
}

func (s *Service) initialize(ctx context.Context, request JSONRPCRequest) HTTPResponse {
	var params InitializeParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return NewErrorHTTPResponse(request.ID, InvalidParams, "Invalid initialize params", err.Error(), http.StatusOK)
	}

	version := negotiateVersion(params.ProtocolVersion)
	s.logger.Debug("MCP session initialized",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"requested", params.ProtocolVersion,
		"protocolVersion", version)

	return NewSuccessHTTPResponse(request.ID, InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapability{
			Resources: &ResourcesCapability{},
			Tools:     &ToolsCapability{},
		},
		ServerInfo:   s.serverInfo,
		Instructions: instructions,
	}, http.StatusOK)
}

func (s *Service) ping(ctx context.Context, request JSONRPCRequest) HTTPResponse {
	return NewSuccessHTTPResponse(request.ID, map[string]any{}, http.StatusOK)
}

func (s *Service) listResources(ctx context.Context, request JSONRPCRequest) HTTPResponse {
	return NewSuccessHTTPResponse(request.ID, ListResourcesResult{Resources: s.registry.ListResources()}, http.StatusOK)
}

func (s *Service) readResource(ctx context.Context, request JSONRPCRequest) HTTPResponse {
	var params ReadResourceParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return NewErrorHTTPResponse(request.ID, InvalidParams, "Invalid read resource params", err.Error(), http.StatusOK)
	}

	handler, ok := s.registry.GetResource(params.URI)
	if !ok {
		return NewErrorHTTPResponse(request.ID, InvalidParams, fmt.Sprintf("Resource not found: %s", params.URI), nil, http.StatusOK)
	}

	result, err := handler.Read(ctx)
	if err != nil {
		s.logger.Error("Failed to read resource", "uri", params.URI, "error", err)
		return NewErrorHTTPResponse(request.ID, InternalError, "Failed to read resource", errorText(err), http.StatusOK)
	}
	return NewSuccessHTTPResponse(request.ID, result, http.StatusOK)
}

func (s *Service) listTools(ctx context.Context, request JSONRPCRequest) HTTPResponse {
	return NewSuccessHTTPResponse(request.ID, ListToolsResult{Tools: s.registry.ListTools()}, http.StatusOK)
}

func (s *Service) callTool(ctx context.Context, request JSONRPCRequest) HTTPResponse {
	var params CallToolParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return NewErrorHTTPResponse(request.ID, InvalidParams, "Invalid call tool params", err.Error(), http.StatusOK)
	}

	handler, ok := s.registry.GetTool(params.Name)
	if !ok {
		return NewErrorHTTPResponse(request.ID, InvalidParams, fmt.Sprintf("Tool not found: %s", params.Name), nil, http.StatusOK)
	}

	result, err := handler.Execute(ctx, params.Arguments)
	if err != nil {
		s.logger.Error("Failed to execute tool", "tool", params.Name, "error", err)
		// tool failures are results, not protocol errors
		result = &CallToolResult{
			Content: []ToolResultContent{{Type: "text", Text: errorText(err)}},
			IsError: true,
		}
	}
	return NewSuccessHTTPResponse(request.ID, result, http.StatusOK)
}

// errorText reports application errors by code and message. Other errors
// are not shown to the client.
func errorText(err error) string {
	var appErr errors.AppError
	if !stderrors.As(err, &appErr) {
		return "internal error"
	}
	return fmt.Sprintf("%s: %s", appErr.Code, appErr.Message)
}
