package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

// LoggingMiddleware is a middleware for logging requests and responses
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware() LoggingMiddleware {
	return LoggingMiddleware{}
}

// Handle logs the request and response. Requests without a gateway request
// ID get a generated one, and the logger passed on carries it.
func (m LoggingMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *slog.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		startTime := time.Now()

		if request.RequestContext.RequestID == "" {
			request.RequestContext.RequestID = uuid.NewString()
		}
		logger = logger.With("requestId", request.RequestContext.RequestID)

		logRequest(request, logger)

		response, err := next(ctx, logger, request)

		logResponse(response, err, time.Since(startTime), logger)

		return response, err
	}
}

// logRequest logs the request
func logRequest(request events.APIGatewayProxyRequest, logger *slog.Logger) {
	logger.Info("REQUEST",
		"method", request.HTTPMethod,
		"path", request.Path,
		"queryParameters", request.QueryStringParameters,
		"headers", maskSensitiveHeaders(request.Headers))

	if request.Body != "" {
		logger.Debug("REQUEST", "body", request.Body)
	}
}

// logResponse logs the response
func logResponse(response events.APIGatewayProxyResponse, err error, duration time.Duration, logger *slog.Logger) {
	if err != nil {
		logger.Info("ERROR", "error", err)
	}

	logger.Info("RESPONSE",
		"status", response.StatusCode,
		"duration", duration,
		"bytes", len(response.Body),
	)
}

// maskSensitiveHeaders masks sensitive headers
func maskSensitiveHeaders(headers map[string]string) map[string]string {
	maskedHeaders := make(map[string]string, len(headers))
	for k, v := range headers {
		maskedHeaders[k] = v
	}

	sensitiveHeaders := []string{
		"Authorization",
		"authorization",
		"X-Api-Key",
		"Cookie",
	}

	for _, header := range sensitiveHeaders {
		if _, ok := maskedHeaders[header]; ok {
			maskedHeaders[header] = "***"
		}
	}

	return maskedHeaders
}
