package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/legal-directory-api/internal/application/auth"
	"github.com/legal-directory-api/internal/application/otp"
	"github.com/legal-directory-api/internal/application/session"
	"github.com/legal-directory-api/internal/config"
	"github.com/legal-directory-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/legal-directory-api/internal/infrastructure/jwt"
	"github.com/legal-directory-api/internal/infrastructure/memory"
	redisinfra "github.com/legal-directory-api/internal/infrastructure/redis"
	"github.com/legal-directory-api/internal/infrastructure/sms"
	"github.com/legal-directory-api/internal/pkg/logger"
	"github.com/legal-directory-api/internal/pkg/secure"
	"github.com/legal-directory-api/internal/ratelimit"
	transporthttp "github.com/legal-directory-api/internal/transport/http"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if err := cfg.Validate(); err != nil {
		zl.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otpRepo, refreshRepo, err := newRepos(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("storage", zap.Error(err))
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("rate limiter", zap.Error(err))
	}
	defer closeLimiter()

	sender, err := sms.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("sms sender", zap.Error(err))
	}

	proxies, err := cfg.TrustedNetworks()
	if err != nil {
		zl.Fatal("trusted proxies", zap.Error(err))
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		zl.Fatal("token provider", zap.Error(err))
	}

	authSvc := auth.NewService(auth.ServiceDeps{
		OTP: otp.NewService(otp.ServiceDeps{
			Repo:   otpRepo,
			TTL:    cfg.OTPTTL,
			Logger: zl.Named("otp"),
		}),
		Sessions: session.NewService(session.ServiceDeps{
			Repo:   refreshRepo,
			TTL:    cfg.RefreshTokenTTL(),
			Logger: zl.Named("session"),
		}),
		Tokens:          jwtProvider,
		SMS:             sender,
		MessageTemplate: cfg.SMSGateway.MessageTemplate,
		Logger:          zl.Named("auth"),
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Auth:           authSvc,
		Tokens:         jwtProvider,
		Limiter:        limiter,
		EncryptionKey:  secure.DeriveKey(cfg.EncryptionKey),
		TrustedProxies: proxies,
		Logger:         zl,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv),
			zap.String("storage", cfg.StorageBackend), zap.String("sms", cfg.SMSProvider),
			zap.String("rate_limit", cfg.RateLimitBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
		return
	}
	zl.Info("server stopped")
}

func newRepos(ctx context.Context, cfg *config.Config, zl *zap.Logger) (otp.ChallengeRepository, session.RefreshRepository, error) {
	switch cfg.StorageBackend {
	case "memory":
		zl.Warn("using in-memory storage; data is lost on restart")
		return memory.NewOtpChallengeRepo(), memory.NewRefreshSessionRepo(), nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, zl.Named("dynamo"))
		return dynamo.NewOtpChallengeRepo(client, cfg.DynamoTables.OtpVerifications, cfg.DBTimeout),
			dynamo.NewRefreshSessionRepo(client, cfg.DynamoTables.RefreshTokens, cfg.DBTimeout, zl.Named("dynamo")),
			nil
	}
	return nil, nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
}

func newLimiter(ctx context.Context, cfg *config.Config, zl *zap.Logger) (ratelimit.Backend, func(), error) {
	switch cfg.RateLimitBackend {
	case "memory":
		return ratelimit.NewMemoryBackend(ctx), func() {}, nil
	case "redis":
		client, err := redisinfra.NewClient(ctx, cfg.RedisURL, zl.Named("redis"))
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewLimiter(client), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
}
