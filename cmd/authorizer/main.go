package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/hirosato/account-statements/backend/internal/api/middleware"
	"github.com/hirosato/account-statements/backend/internal/common/config"
	"github.com/hirosato/account-statements/backend/internal/common/utils"
	"github.com/hirosato/account-statements/backend/internal/platform/auth"
)

// Authorizer is the API Gateway REST API request authorizer
type Authorizer struct {
	verifier middleware.TokenVerifier
	logger   *slog.Logger
	debug    bool
}

// NewAuthorizer creates a new authorizer
func NewAuthorizer(verifier middleware.TokenVerifier, logger *slog.Logger, debug bool) *Authorizer {
	return &Authorizer{
		verifier: verifier,
		logger:   logger,
		debug:    debug,
	}
}

// Handle allows requests carrying a valid bearer token and passes the
// token's entity and subject on to the backend
func (a *Authorizer) Handle(ctx context.Context, request events.APIGatewayCustomAuthorizerRequestTypeRequest) (events.APIGatewayCustomAuthorizerResponse, error) {
	authHeader := request.Headers["Authorization"]
	if authHeader == "" {
		authHeader = request.Headers["authorization"] // Case-insensitive fallback
	}

	token, err := utils.ExtractBearerToken(authHeader)
	if err != nil {
		a.logger.Info("Missing or invalid Authorization header", "error", err)
		return generatePolicy("user", "Deny", request.MethodArn, nil), nil
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	a.logger.Info("authorizer - Memory Status", "MB", m.Alloc/1024/1024)

	if a.debug {
		a.logger.Debug("Token received", "length", len(token))
	}

	tenantCtx, claims, err := a.verifier.Verify(ctx, token)
	if err != nil {
		a.logger.Info("Token validation failed", "error", err)
		return generatePolicy("user", "Deny", request.MethodArn, nil), nil
	}

	authContext := map[string]interface{}{
		middleware.AuthorizerEntityIDKey: tenantCtx.TenantID,
		middleware.AuthorizerUserIDKey:   tenantCtx.UserID,
		"scope":                          claims.Scope,
		"iss":                            claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		authContext["exp"] = fmt.Sprintf("%d", claims.ExpiresAt.Unix())
	}

	// arn:aws:execute-api:{regionId}:{accountId}:{apiId}/{stage}/{httpVerb}/[{resource}/[{child-resources}]]
	arn := fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/%s/%s",
		"*", // Region
		request.RequestContext.AccountID,
		request.RequestContext.APIID,
		request.RequestContext.Stage,
		"*", //HTTP Method
	)

	principalID := tenantCtx.UserID
	if principalID == "" {
		principalID = tenantCtx.TenantID
	}
	return generatePolicy(principalID, "Allow", arn, authContext), nil
}

// generatePolicy generates an IAM policy for the authorizer response
func generatePolicy(principalID, effect, resource string, context map[string]interface{}) events.APIGatewayCustomAuthorizerResponse {
	authResponse := events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: principalID,
	}

	if effect != "" && resource != "" {
		authResponse.PolicyDocument = events.APIGatewayCustomAuthorizerPolicy{
			Version: "2012-10-17",
			Statement: []events.IAMPolicyStatement{
				{
					Action:   []string{"execute-api:Invoke"},
					Effect:   effect,
					Resource: []string{resource},
				},
			},
		}
	}

	if context != nil {
		authResponse.Context = context
	}

	// Usage identifier for API Gateway usage plans
	authResponse.UsageIdentifierKey = principalID

	return authResponse
}

// main is the entry point for the Lambda function
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	appConfig, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	secrets, err := auth.NewSecretSource(context.Background(), appConfig)
	if err != nil {
		logger.Error("Failed to initialize signing secret", "error", err)
		os.Exit(1)
	}

	verifier := auth.NewVerifier(secrets, appConfig.JWTIssuer, strings.TrimSpace(appConfig.JWTRequiredScope))
	lambda.Start(NewAuthorizer(verifier, logger, !appConfig.IsProd()).Handle)
}
