package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/domain/errors"
	"github.com/hirosato/account-statements/backend/internal/domain/tenant"
)

// Verifier checks HS256 access tokens and maps them to a tenant
type Verifier struct {
	secrets       SecretSource
	issuer        string
	requiredScope string
}

// NewVerifier creates a verifier. Empty issuer or requiredScope disable
// those checks.
func NewVerifier(secrets SecretSource, issuer, requiredScope string) *Verifier {
	return &Verifier{
		secrets:       secrets,
		issuer:        issuer,
		requiredScope: requiredScope,
	}
}

// Verify validates token and returns the caller's tenant context
func (v *Verifier) Verify(ctx context.Context, token string) (*tenant.TenantContext, *utils.Claims, error) {
	secret, err := v.secrets.Secret(ctx)
	if err != nil {
		return nil, nil, errors.NewInternalError("signing secret unavailable", err)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims, err := utils.ParseJWT(token, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, nil, errors.NewAuthenticationError(fmt.Sprintf("invalid token: %v", err))
	}

	if claims.EntityID == "" {
		return nil, nil, errors.NewAuthenticationError("token has no entity")
	}
	if v.requiredScope != "" && !utils.HasScope(claims, v.requiredScope) {
		return nil, nil, errors.NewAuthenticationError("token lacks scope " + v.requiredScope)
	}

	return &tenant.TenantContext{TenantID: claims.EntityID, UserID: claims.Subject}, claims, nil
}
