// Package auth verifies API access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"

	"github.com/hirosato/account-statements/backend/internal/common/config"
)

// SecretSource supplies the HMAC key tokens are signed with
type SecretSource interface {
	Secret(ctx context.Context) ([]byte, error)
}

// StaticSecret is a key held in configuration
type StaticSecret []byte

// Secret returns the key
func (s StaticSecret) Secret(ctx context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("empty signing secret")
	}
	return s, nil
}

// secretGetter is the part of *secretcache.Cache used here
type secretGetter interface {
	GetSecretString(secretID string) (string, error)
}

// SecretsManagerSource reads the key from AWS Secrets Manager through a
// client side cache, so rotations are picked up once the cache refreshes.
type SecretsManagerSource struct {
	cache    secretGetter
	secretID string
}

// NewSecretsManagerSource creates a cached source for secretID
func NewSecretsManagerSource(client *secretsmanager.Client, secretID string) (*SecretsManagerSource, error) {
	cache, err := secretcache.New(func(c *secretcache.Cache) {
		c.Client = client
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret cache: %w", err)
	}
	return &SecretsManagerSource{cache: cache, secretID: secretID}, nil
}

// Secret returns the current key
func (s *SecretsManagerSource) Secret(ctx context.Context) ([]byte, error) {
	value, err := s.cache.GetSecretString(s.secretID)
	if err != nil {
		return nil, fmt.Errorf("failed to get signing secret: %w", err)
	}
	if value == "" {
		return nil, errors.New("empty signing secret")
	}
	return []byte(value), nil
}

// NewSecretSource picks the configured secret: JWT_SECRET when set,
// otherwise the Secrets Manager secret named by JWT_SECRET_ID.
func NewSecretSource(ctx context.Context, cfg *config.Config) (SecretSource, error) {
	if cfg.JWTSecret != "" {
		return StaticSecret(cfg.JWTSecret), nil
	}
	if cfg.JWTSecretID == "" {
		return nil, errors.New("JWT_SECRET or JWT_SECRET_ID environment variable is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewSecretsManagerSource(secretsmanager.NewFromConfig(awsCfg), cfg.JWTSecretID)
}
