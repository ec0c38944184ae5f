package middleware

import (
	"context"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hirosato/account-statements/backend/internal/api/response"
	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

// TokenVerifier validates bearer tokens. auth.Verifier implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*tenant.TenantContext, *utils.Claims, error)
}

// AuthMiddleware authenticates HTTP requests with a bearer token
type AuthMiddleware struct {
	verifier TokenVerifier
	log      *zap.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(verifier TokenVerifier, log *zap.Logger) AuthMiddleware {
	if log == nil {
		log = zap.NewNop()
	}
	return AuthMiddleware{
		verifier: verifier,
		log:      log,
	}
}

// Middleware verifies the Authorization header and stores the tenant
// context on the request
func (m AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimiddleware.GetReqID(r.Context())

		token, err := utils.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			response.WriteError(w, errors.NewAuthenticationError(err.Error()), requestID)
			return
		}

		tenantCtx, _, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.log.Warn("Token validation failed", zap.Error(err), zap.String("requestId", requestID))
			response.WriteError(w, err, requestID)
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithContext(r.Context(), tenantCtx)))
	})
}
