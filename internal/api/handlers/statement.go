package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/hirosato/account-statements/backend/internal/api/response"
	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/domain/ledger"
	"github.com/hirosato/account-statements/backend/internal/domain/statement"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

// Route patterns, shared by the chi router and the API Gateway resources
const (
	StatementRoute    = "/accounts/{accountID}/statement"
	ContributionRoute = "/accounts/{accountID}/transactions/{transactionID}/contribution"
)

// StatementHandler serves account statements over HTTP and API Gateway
type StatementHandler struct {
	builder statement.Builder
	logger  *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(builder statement.Builder, logger *slog.Logger) *StatementHandler {
	return &StatementHandler{
		builder: builder,
		logger:  logger,
	}
}

// ContributionResponse is the body of the contribution endpoint
type ContributionResponse struct {
	AccountID     string          `json:"accountId"`
	TransactionID string          `json:"transactionId"`
	Contribution  decimal.Decimal `json:"contribution"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// Routes registers the endpoints on r
func (h *StatementHandler) Routes(r chi.Router) {
	r.Get(StatementRoute, h.GetStatement)
	r.Get(ContributionRoute, h.GetContribution)
}

// An empty account ID is left to the builder, which reports it as a missing account
func (h *StatementHandler) statement(ctx context.Context, accountID string, query func(string) string) (*statement.Statement, error) {
	if err := utils.ValidateOptionalID(accountID, "accountId"); err != nil {
		return nil, err
	}
	if err := utils.ValidateOptionalID(query("currencyId"), "currencyId"); err != nil {
		return nil, err
	}
	tenantCtx, _ := tenant.FromContext(ctx)
	return h.builder.BuildStatement(ctx, tenantCtx, statement.Request{
		AccountID:  accountID,
		CurrencyID: query("currencyId"),
		StartDate:  query("startDate"),
		EndDate:    query("endDate"),
	})
}

func (h *StatementHandler) contribution(ctx context.Context, accountID, transactionID string) (*ContributionResponse, error) {
	if err := utils.ValidateOptionalID(accountID, "accountId"); err != nil {
		return nil, err
	}
	if err := utils.ValidateID(transactionID, "transactionId"); err != nil {
		return nil, err
	}
	tenantCtx, _ := tenant.FromContext(ctx)
	amount, err := h.builder.Contribution(ctx, tenantCtx, accountID, transactionID)
	if err != nil {
		return nil, err
	}
	debit, credit := ledger.Split(amount)
	return &ContributionResponse{
		AccountID:     accountID,
		TransactionID: transactionID,
		Contribution:  amount,
		Debit:         debit,
		Credit:        credit,
	}, nil
}

// GetStatement handles GET /accounts/{accountID}/statement
func (h *StatementHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	requestID := chimiddleware.GetReqID(r.Context())
	stmt, err := h.statement(r.Context(), chi.URLParam(r, "accountID"), r.URL.Query().Get)
	if err != nil {
		h.logger.Warn("statement failed", "requestId", requestID, "error", err)
		response.WriteError(w, err, requestID)
		return
	}
	response.WriteOK(w, stmt, requestID)
}

// GetContribution handles GET /accounts/{accountID}/transactions/{transactionID}/contribution
func (h *StatementHandler) GetContribution(w http.ResponseWriter, r *http.Request) {
	requestID := chimiddleware.GetReqID(r.Context())
	resp, err := h.contribution(r.Context(), chi.URLParam(r, "accountID"), chi.URLParam(r, "transactionID"))
	if err != nil {
		h.logger.Warn("contribution failed", "requestId", requestID, "error", err)
		response.WriteError(w, err, requestID)
		return
	}
	response.WriteOK(w, resp, requestID)
}

// HandleGetStatement serves StatementRoute behind API Gateway
func (h *StatementHandler) HandleGetStatement(ctx context.Context, logger *slog.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	query := func(key string) string { return request.QueryStringParameters[key] }
	stmt, err := h.statement(ctx, request.PathParameters["accountID"], query)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(stmt, request.RequestContext.RequestID), nil
}

// HandleGetContribution serves ContributionRoute behind API Gateway
func (h *StatementHandler) HandleGetContribution(ctx context.Context, logger *slog.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := h.contribution(ctx, request.PathParameters["accountID"], request.PathParameters["transactionID"])
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return response.OK(resp, request.RequestContext.RequestID), nil
}
