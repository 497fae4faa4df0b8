package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/otp-gateway/internal/application/otp"
	"github.com/otp-gateway/internal/application/session"
	"github.com/otp-gateway/internal/config"
	"github.com/otp-gateway/internal/infrastructure/dynamo"
	"github.com/otp-gateway/internal/infrastructure/gotrue"
	jwtinfra "github.com/otp-gateway/internal/infrastructure/jwt"
	"github.com/otp-gateway/internal/infrastructure/sns"
	"github.com/otp-gateway/internal/pkg/logx"
	transporthttp "github.com/otp-gateway/internal/transport/http"
	"github.com/otp-gateway/internal/transport/http/view"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logx.New(logx.Config{Service: "otp-gateway", Env: cfg.AppEnv, Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		fatal("dynamo client", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// Access-token verification (optional; without a secret the provider response is trusted).
	var tokens gotrue.TokenVerifier
	if v, err := jwtinfra.NewVerifier(cfg); err == nil {
		tokens = v
	} else {
		slog.Warn("access token verification disabled", "err", err)
	}

	// Sign-in events (optional).
	var events session.EventPublisher
	if p, err := sns.NewPublisher(ctx, cfg); err == nil {
		events = p
	} else {
		slog.Warn("sign-in events disabled", "err", err)
	}

	renderer, err := view.New(cfg.OTPFormLayout)
	if err != nil {
		fatal("templates", err)
	}

	provider := gotrue.NewClient(cfg, tokens)
	retention := otp.RetainOnFailure
	if cfg.OTPClearOnFailure {
		retention = otp.ClearOnFailure
	}

	deps := &transporthttp.Deps{
		Workflow: otp.NewWorkflow(provider, otp.Options{
			Routes:    otp.Routes{Login: cfg.LoginPath, Destination: cfg.DestinationPath},
			Retention: retention,
		}),
		Sender: provider,
		Sessions: session.NewService(session.ServiceDeps{
			SessionRepo: dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
			Events:      events,
		}),
		View: renderer,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "layout", cfg.OTPFormLayout)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal("forced shutdown", err)
	}
	slog.Info("server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
