package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/statement"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

type stubBuilder struct {
	tenant        *tenant.TenantContext
	request       statement.Request
	accountID     string
	transactionID string
	amount        decimal.Decimal
	err           error
}

func (s *stubBuilder) BuildStatement(_ context.Context, tenantCtx *tenant.TenantContext, req statement.Request) (*statement.Statement, error) {
	s.tenant = tenantCtx
	s.request = req
	if s.err != nil {
		return nil, s.err
	}
	return &statement.Statement{
		AccountID:    req.AccountID,
		Transactions: []statement.Row{},
	}, nil
}

func (s *stubBuilder) Contribution(_ context.Context, tenantCtx *tenant.TenantContext, accountID, transactionID string) (decimal.Decimal, error) {
	s.tenant = tenantCtx
	s.accountID = accountID
	s.transactionID = transactionID
	return s.amount, s.err
}

func withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tenant.WithContext(r.Context(), &tenant.TenantContext{TenantID: "acme"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter(builder *stubBuilder) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewStatementHandler(builder, logger), withTenant)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func serve(t *testing.T, h http.Handler, target string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestGetStatement(t *testing.T) {
	builder := &stubBuilder{}
	status, body := serve(t, newTestRouter(builder), "/accounts/bank/statement?startDate=2024-01-01&endDate=2024-01-31&currencyId=usd")

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, statement.Request{
		AccountID:  "bank",
		CurrencyID: "usd",
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31",
	}, builder.request)
	require.NotNil(t, builder.tenant)
	assert.Equal(t, "acme", builder.tenant.TenantID)

	var stmt statement.Statement
	require.NoError(t, json.Unmarshal(body.Data, &stmt))
	assert.Equal(t, "bank", stmt.AccountID)
}

func TestGetStatement_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "missing account", err: errors.NewMissingAccountError("Account Statement", errors.NewNotFoundError("account not found")), status: http.StatusBadRequest, code: errors.CodeMissingAccount},
		{name: "invalid date", err: errors.NewInvalidDateError("startDate", "2024-13-01", nil), status: http.StatusBadRequest, code: errors.CodeInvalidDate},
		{name: "currency not found", err: errors.NewNotFoundError("currency not found"), status: http.StatusNotFound, code: errors.CodeNotFound},
		{name: "store failure", err: errors.NewInternalError("query failed", nil), status: http.StatusInternalServerError, code: errors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, newTestRouter(&stubBuilder{err: tt.err}), "/accounts/bank/statement")
			assert.Equal(t, tt.status, status)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error)
		})
	}
}

func TestGetContribution(t *testing.T) {
	builder := &stubBuilder{amount: decimal.RequireFromString("-75.5")}
	status, body := serve(t, newTestRouter(builder), "/accounts/sales/transactions/t-1/contribution")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sales", builder.accountID)
	assert.Equal(t, "t-1", builder.transactionID)

	var got ContributionResponse
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.True(t, got.Contribution.Equal(decimal.RequireFromString("-75.5")))
	assert.True(t, got.Debit.IsZero())
	assert.True(t, got.Credit.Equal(decimal.RequireFromString("75.5")))
}

func TestGetStatement_RejectsMalformedIDs(t *testing.T) {
	builder := &stubBuilder{}
	status, body := serve(t, newTestRouter(builder), "/accounts/bank/statement?currencyId=%24usd")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errors.CodeValidation, body.Error)
	assert.Nil(t, builder.tenant)

	status, body = serve(t, newTestRouter(builder), "/accounts/bank/transactions/%2At/contribution")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errors.CodeValidation, body.Error)
	assert.Empty(t, builder.transactionID)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubBuilder{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleGetStatement_APIGateway(t *testing.T) {
	builder := &stubBuilder{}
	h := NewStatementHandler(builder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := tenant.WithContext(context.Background(), &tenant.TenantContext{TenantID: "acme"})

	resp, err := h.HandleGetStatement(ctx, nil, events.APIGatewayProxyRequest{
		PathParameters:        map[string]string{"accountID": "bank"},
		QueryStringParameters: map[string]string{"endDate": "2024-03-31"},
		RequestContext:        events.APIGatewayProxyRequestContext{RequestID: "req-9"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, statement.Request{AccountID: "bank", EndDate: "2024-03-31"}, builder.request)

	builder.err = errors.NewMissingAccountError("Account Statement", nil)
	_, err = h.HandleGetStatement(ctx, nil, events.APIGatewayProxyRequest{})
	assert.ErrorIs(t, err, errors.ErrMissingAccount)
}

func TestHandleGetContribution_APIGateway(t *testing.T) {
	builder := &stubBuilder{amount: decimal.RequireFromString("12")}
	h := NewStatementHandler(builder, slog.New(slog.NewTextHandler(io.Discard, nil)))

	resp, err := h.HandleGetContribution(context.Background(), nil, events.APIGatewayProxyRequest{
		PathParameters: map[string]string{"accountID": "bank", "transactionID": "t-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "t-7", builder.transactionID)
	assert.Nil(t, builder.tenant)
}
