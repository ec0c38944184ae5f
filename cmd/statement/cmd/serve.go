package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hirosato/account-statements/backend/internal/api/handlers"
	"github.com/hirosato/account-statements/backend/internal/api/middleware"
	"github.com/hirosato/account-statements/backend/internal/platform/auth"
	"github.com/hirosato/account-statements/backend/internal/platform/store"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve statements over HTTP",
		Long: `Serve the statement API:

  GET /accounts/{accountID}/statement?startDate=&endDate=&currencyId=
  GET /accounts/{accountID}/transactions/{transactionID}/contribution

Requests need a bearer token signed with JWT_SECRET (or the Secrets Manager
secret JWT_SECRET_ID) whose entityId claim selects the books.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger := global.log()

			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.HTTPAddr
			}

			ledgerStore, err := store.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer ledgerStore.Close()

			builder, err := store.NewBuilder(ctx, cfg, ledgerStore.Repository, logger)
			if err != nil {
				return err
			}
			defer builder.Close()

			secrets, err := auth.NewSecretSource(ctx, cfg)
			if err != nil {
				return err
			}
			verifier := auth.NewVerifier(secrets, cfg.JWTIssuer, cfg.JWTRequiredScope)

			zapLogger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()

			router := handlers.NewRouter(
				handlers.NewStatementHandler(builder, logger),
				middleware.NewAuthMiddleware(verifier, zapLogger).Middleware,
			)

			server := &http.Server{
				Addr:         addr,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 75 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("server shutdown error", "error", err)
				}
			}()

			logger.Info("starting statement API", "addr", addr, "driver", cfg.StoreDriver, "cache", cfg.CacheEnabled())
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: HTTP_ADDR or :8080)")
	return cmd
}
