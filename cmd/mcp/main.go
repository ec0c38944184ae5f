package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/hirosato/account-statements/backend/internal/api/handlers"
	"github.com/hirosato/account-statements/backend/internal/api/mcp/resources"
	"github.com/hirosato/account-statements/backend/internal/api/mcp/tools"
	"github.com/hirosato/account-statements/backend/internal/api/middleware"
	"github.com/hirosato/account-statements/backend/internal/api/response"
	envconfig "github.com/hirosato/account-statements/backend/internal/common/config"
	"github.com/hirosato/account-statements/backend/internal/domain/mcp"
	"github.com/hirosato/account-statements/backend/internal/platform/store"
)

type MCPRequestHandler struct {
	mcpService *mcp.Service
	statements *handlers.StatementHandler
	chain      middleware.APIGatewayHandler
	logger     *slog.Logger
	config     *envconfig.Config
}

// NewMCPRequestHandler creates a new MCP request handler. Every request runs
// through recovery, logging and tenant extraction.
func NewMCPRequestHandler(
	mcpService *mcp.Service,
	statements *handlers.StatementHandler,
	zapLogger *zap.Logger,
	logger *slog.Logger,
	config *envconfig.Config,
) *MCPRequestHandler {
	h := &MCPRequestHandler{
		mcpService: mcpService,
		statements: statements,
		logger:     logger,
		config:     config,
	}
	h.chain = middleware.Chain(h.route,
		middleware.NewRecoveryMiddleware(),
		middleware.NewLoggingMiddleware(),
		middleware.NewTenantMiddleware(zapLogger),
	)
	return h
}

func (h *MCPRequestHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	// Handle CORS preflight
	if request.HTTPMethod == "OPTIONS" {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    h.getCORSHeaders(),
		}, nil
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	h.logger.Info("mcp - Memory Status", "MB", m.Alloc/1024/1024)

	return h.chain(ctx, h.logger, request)
}

func (h *MCPRequestHandler) route(ctx context.Context, logger *slog.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch {
	case request.Resource == handlers.StatementRoute && request.HTTPMethod == http.MethodGet:
		return h.statements.HandleGetStatement(ctx, logger, request)
	case request.Resource == handlers.ContributionRoute && request.HTTPMethod == http.MethodGet:
		return h.statements.HandleGetContribution(ctx, logger, request)
	case request.Path == "/" && request.HTTPMethod != http.MethodPost:
		return h.jsonRPCMethodNotAllowedError(), nil
	case request.Path == "/":
		return h.handleJSONRPC(ctx, logger, request), nil
	default:
		return response.NotFound("Endpoint not found"), nil
	}
}

// handleJSONRPC serves MCP requests, which arrive on the root path
func (h *MCPRequestHandler) handleJSONRPC(ctx context.Context, logger *slog.Logger, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if !h.config.IsProd() {
		logger.Debug("Request Details", "body", request.Body)
	}

	var jsonRPCRequest mcp.JSONRPCRequest
	if err := json.Unmarshal([]byte(request.Body), &jsonRPCRequest); err != nil {
		logger.Error("Failed to parse JSON-RPC request", "error", err)
		return h.jsonRPCErrorResponse(mcp.ParseError, "Parse error", err.Error())
	}

	httpResponse := h.mcpService.HandleRequest(ctx, jsonRPCRequest)
	if !httpResponse.HasBody() {
		return events.APIGatewayProxyResponse{
			StatusCode: httpResponse.StatusCode,
			Headers:    h.getCORSHeaders(),
		}
	}

	responseBody, err := json.Marshal(httpResponse.JSONRPCResponse)
	if err != nil {
		logger.Error("Failed to marshal JSON-RPC response", "error", err)
		return h.jsonRPCErrorResponse(mcp.InternalError, "Internal error", "Failed to marshal response")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: httpResponse.StatusCode,
		Headers:    h.getCORSHeaders(),
		Body:       string(responseBody),
	}
}

func (h *MCPRequestHandler) getCORSHeaders() map[string]string {
	headers := make(map[string]string)
	headers["Content-Type"] = "application/json"
	headers["Access-Control-Allow-Origin"] = "*"
	headers["Access-Control-Allow-Methods"] = "GET, POST, OPTIONS"
	headers["Access-Control-Allow-Headers"] = "Content-Type, Authorization"
	return headers
}

func (h *MCPRequestHandler) jsonRPCErrorResponse(code int, message string, data string) events.APIGatewayProxyResponse {
	errorResponse := mcp.JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &mcp.JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	body, _ := json.Marshal(errorResponse)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK, // JSON-RPC errors still return 200
		Headers:    h.getCORSHeaders(),
		Body:       string(body),
	}
}

func (h *MCPRequestHandler) jsonRPCMethodNotAllowedError() events.APIGatewayProxyResponse {
	errorResponse := mcp.JSONRPCResponse{
		JSONRPC: "2.0",
		Error: &mcp.JSONRPCError{
			Code:    mcp.MethodNotAllowed,
			Message: "Method Not Allowed",
		},
	}

	body, _ := json.Marshal(errorResponse)
	headers := h.getCORSHeaders()
	headers["Allow"] = "POST"
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusMethodNotAllowed,
		Headers:    headers,
		Body:       string(body),
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		logger.Error("Failed to initialize zap logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	config, err := envconfig.LoadFromEnv()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	ledgerStore, err := store.Open(ctx, config, logger)
	if err != nil {
		logger.Error("Failed to open ledger store", "driver", config.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer ledgerStore.Close()

	builder, err := store.NewBuilder(ctx, config, ledgerStore.Repository, logger)
	if err != nil {
		logger.Error("Failed to initialize statement builder", "error", err)
		os.Exit(1)
	}
	defer builder.Close()

	registry := mcp.NewHandlerRegistry()
	registry.RegisterTool(tools.NewAccountStatementTool(builder))
	registry.RegisterTool(tools.NewTransactionContributionTool(builder))
	registry.RegisterResource(resources.NewTransactionTypesResource(builder.Labels))

	mcpService := mcp.NewService(logger, registry)

	handler := NewMCPRequestHandler(
		mcpService,
		handlers.NewStatementHandler(builder, logger),
		zapLogger,
		logger,
		config,
	)

	lambda.Start(handler.HandleRequest)
}
