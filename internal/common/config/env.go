package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	// Environment and region info
	Environment string
	AWSRegion   string

	// Ledger store
	StoreDriver       string
	DynamoDBTableName string
	DatabaseURL       string

	// Statement cache; disabled when RedisAddr is empty
	RedisAddr         string
	StatementCacheTTL time.Duration

	// Optional YAML file overriding transaction type labels
	TransactionTypesFile string

	// Token verification. JWTSecret wins over JWTSecretID.
	JWTSecret   string
	JWTSecretID string
	JWTIssuer   string
	// Scope every token must carry; empty accepts any
	JWTRequiredScope string

	// Listen address of the HTTP server
	HTTPAddr string

	// Lambda detection flag (cached)
	isLambda bool
}

// LoadFromEnv loads the configuration from environment variables. Variables
// in a .env file are loaded first without overriding the environment; an
// explicit envPath must exist.
func LoadFromEnv(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envPath[0], err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Environment:          getEnv("ENVIRONMENT", "dev"),
		AWSRegion:            getEnv("AWS_REGION", "ap-northeast-1"),
		StoreDriver:          getEnv("STORE_DRIVER", DriverDynamoDB),
		DynamoDBTableName:    os.Getenv("DYNAMODB_TABLE_NAME"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		TransactionTypesFile: os.Getenv("TRANSACTION_TYPES_FILE"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTSecretID:          os.Getenv("JWT_SECRET_ID"),
		JWTIssuer:            os.Getenv("JWT_ISSUER"),
		JWTRequiredScope:     os.Getenv("JWT_REQUIRED_SCOPE"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		isLambda:             os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",
	}

	ttl := getEnv("STATEMENT_CACHE_TTL", "5m")
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return nil, fmt.Errorf("invalid STATEMENT_CACHE_TTL %q: %w", ttl, err)
	}
	cfg.StatementCacheTTL = d

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store driver is configured
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverDynamoDB:
		if c.DynamoDBTableName == "" {
			return errors.New("DYNAMODB_TABLE_NAME environment variable is required")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is required")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// IsLambda returns true if the application is running in AWS Lambda
func (c *Config) IsLambda() bool {
	return c.isLambda
}

// CacheEnabled reports whether statements should be cached in Redis
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
