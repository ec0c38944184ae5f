package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/domain/errors"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims utils.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() utils.Claims {
	return utils.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "ledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		EntityID: "ent-1",
		Scope:    "statements:read profile",
	}
}

func TestVerify(t *testing.T) {
	v := NewVerifier(StaticSecret(testSecret), "ledger", "statements:read")

	tc, claims, err := v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "ent-1", tc.TenantID)
	assert.Equal(t, "user-1", tc.UserID)
	assert.Equal(t, "ledger", claims.Issuer)
}

func TestVerify_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	otherIssuer := validClaims()
	otherIssuer.Issuer = "someone-else"

	noEntity := validClaims()
	noEntity.EntityID = ""

	noScope := validClaims()
	noScope.Scope = "profile"

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(t, jwt.SigningMethodHS256, testSecret, expired)},
		{"no expiry", sign(t, jwt.SigningMethodHS256, testSecret, noExpiry)},
		{"wrong key", sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret!!"), validClaims())},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, testSecret, validClaims())},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, testSecret, otherIssuer)},
		{"no entity", sign(t, jwt.SigningMethodHS256, testSecret, noEntity)},
		{"missing scope", sign(t, jwt.SigningMethodHS256, testSecret, noScope)},
		{"garbage", "not.a.token"},
	}

	v := NewVerifier(StaticSecret(testSecret), "ledger", "statements:read")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := v.Verify(context.Background(), tt.token)
			require.Error(t, err)

			var appErr errors.AppError
			require.True(t, stderrors.As(err, &appErr))
			assert.Equal(t, errors.CodeAuthentication, appErr.Code)
		})
	}
}

type stubCache struct {
	value string
	err   error
	ids   []string
}

func (s *stubCache) GetSecretString(secretID string) (string, error) {
	s.ids = append(s.ids, secretID)
	return s.value, s.err
}

func TestSecretsManagerSource(t *testing.T) {
	cache := &stubCache{value: string(testSecret)}
	source := &SecretsManagerSource{cache: cache, secretID: "ledger/jwt"}

	v := NewVerifier(source, "", "")
	tc, _, err := v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "ent-1", tc.TenantID)
	assert.Equal(t, []string{"ledger/jwt"}, cache.ids)

	cache.err = fmt.Errorf("access denied")
	_, _, err = v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, testSecret, validClaims()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
}

func TestStaticSecretEmpty(t *testing.T) {
	_, err := StaticSecret(nil).Secret(context.Background())
	assert.Error(t, err)
}
