package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the claims of an API access token. EntityID selects the books
// the caller may read.
type Claims struct {
	jwt.RegisteredClaims
	EntityID string `json:"entityId"`
	Scope    string `json:"scope,omitempty"`
}

// ParseJWT parses and validates a token, requiring an expiry
func ParseJWT(tokenString string, keyFunc jwt.Keyfunc, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append([]jwt.ParserOption{jwt.WithExpirationRequired()}, opts...)
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is required")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be: Bearer {token}")
	}

	return parts[1], nil
}

// HasScope checks if the space separated scope claim contains requiredScope
func HasScope(claims *Claims, requiredScope string) bool {
	for _, scope := range strings.Fields(claims.Scope) {
		if scope == requiredScope {
			return true
		}
	}
	return false
}
