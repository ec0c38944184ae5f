package middleware

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/hirosato/account-statements/backend/internal/api/response"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

// Authorizer context keys set by cmd/authorizer
const (
	AuthorizerEntityIDKey = "entityId"
	AuthorizerUserIDKey   = "userId"
)

// TenantMiddleware extracts the caller's entity from the request authorizer
// context
type TenantMiddleware struct {
	log *zap.Logger
}

// NewTenantMiddleware creates a new tenant middleware
func NewTenantMiddleware(log *zap.Logger) *TenantMiddleware {
	if log == nil {
		log = zap.NewNop()
	}
	return &TenantMiddleware{log: log}
}

// Handle rejects requests without an authorized entity and stores the
// tenant context for the rest of the chain
func (m *TenantMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *slog.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		authorizer := request.RequestContext.Authorizer
		entityID := authorizerString(authorizer, AuthorizerEntityIDKey)
		if entityID == "" {
			m.log.Warn("request has no authorized entity",
				zap.String("requestId", request.RequestContext.RequestID),
				zap.String("path", request.Path))
			return response.TenantError("no entity authorized for this request", request.RequestContext.RequestID), nil
		}

		tenantCtx := &tenant.TenantContext{
			TenantID: entityID,
			UserID:   authorizerString(authorizer, AuthorizerUserIDKey),
		}
		ctx = tenant.WithContext(ctx, tenantCtx)

		return next(ctx, logger.With("entityId", entityID), request)
	}
}

func authorizerString(authorizer map[string]interface{}, key string) string {
	if authorizer == nil {
		return ""
	}
	value, _ := authorizer[key].(string)
	return value
}
