package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/platform/auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestAuthorizer() *Authorizer {
	verifier := auth.NewVerifier(auth.StaticSecret(testSecret), "statements-test", "")
	return NewAuthorizer(verifier, slog.New(slog.NewTextHandler(io.Discard, nil)), true)
}

func signedToken(t *testing.T, claims utils.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func request(header string) events.APIGatewayCustomAuthorizerRequestTypeRequest {
	return events.APIGatewayCustomAuthorizerRequestTypeRequest{
		MethodArn: "arn:aws:execute-api:ap-northeast-1:123456789012:api/prod/GET/accounts",
		Headers:   map[string]string{"authorization": header},
		RequestContext: events.APIGatewayCustomAuthorizerRequestTypeRequestContext{
			AccountID: "123456789012",
			APIID:     "api",
			Stage:     "prod",
		},
	}
}

func TestAuthorizer_Allow(t *testing.T) {
	token := signedToken(t, utils.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "statements-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		EntityID: "acme",
		Scope:    "statements:read",
	})

	resp, err := newTestAuthorizer().Handle(context.Background(), request("Bearer "+token))
	require.NoError(t, err)

	assert.Equal(t, "u-1", resp.PrincipalID)
	require.Len(t, resp.PolicyDocument.Statement, 1)
	assert.Equal(t, "Allow", resp.PolicyDocument.Statement[0].Effect)
	assert.Equal(t, []string{"arn:aws:execute-api:*:123456789012:api/prod/*"}, resp.PolicyDocument.Statement[0].Resource)
	assert.Equal(t, "acme", resp.Context["entityId"])
	assert.Equal(t, "u-1", resp.Context["userId"])
	assert.Equal(t, "statements:read", resp.Context["scope"])
}

func TestAuthorizer_Deny(t *testing.T) {
	wrongIssuer := signedToken(t, utils.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		EntityID: "acme",
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "wrong issuer", header: "Bearer " + wrongIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newTestAuthorizer().Handle(context.Background(), request(tt.header))
			require.NoError(t, err)
			require.Len(t, resp.PolicyDocument.Statement, 1)
			assert.Equal(t, "Deny", resp.PolicyDocument.Statement[0].Effect)
			assert.Nil(t, resp.Context)
		})
	}
}
