package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/time-capsule-api/internal/config"
	"github.com/time-capsule-api/internal/infrastructure/dynamo"
	"github.com/time-capsule-api/internal/infrastructure/google"
	jwtinfra "github.com/time-capsule-api/internal/infrastructure/jwt"
	minioinfra "github.com/time-capsule-api/internal/infrastructure/minio"
	"github.com/time-capsule-api/internal/infrastructure/postgres"
	s3infra "github.com/time-capsule-api/internal/infrastructure/s3"
	"github.com/time-capsule-api/internal/infrastructure/smtp"
	"github.com/time-capsule-api/internal/infrastructure/sns"
	"github.com/time-capsule-api/internal/scheduler"
	transporthttp "github.com/time-capsule-api/internal/transport/http"
)

type bucketStore interface {
	transporthttp.ObjectStore
	EnsureBucket(ctx context.Context) error
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	initLogger(cfg)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		fatal("dynamodb client", err)
	}
	if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables); err != nil {
		slog.Warn("dynamodb bootstrap incomplete", "error", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("postgres pool", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		fatal("postgres migrate", err)
	}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		fatal("object storage", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		fatal("object storage bucket", err)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		fatal("jwt provider", err)
	}

	var smsSender sns.SMSSender
	if cfg.SMSEnabled {
		if sender, err := sns.NewSender(ctx, cfg); err == nil {
			smsSender = sender
		} else {
			slog.Warn("sns sender not available, sms copies disabled", "error", err)
		}
	}

	var googleVerifier *google.Verifier
	if cfg.GoogleClientID != "" {
		googleVerifier = google.NewVerifier(cfg.GoogleClientID)
	}

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.UserVerifications),
		CapsuleRepo:      postgres.NewCapsuleRepo(pool),
		MediaRepo:        postgres.NewMediaRepo(pool),
		Storage:          store,
		Mailer:           smtp.NewMailer(cfg),
		SMSSender:        smsSender,
		JWTProvider:      jwtProvider,
		GoogleVerifier:   googleVerifier,
		DB:               pool,
	}
	svcs := transporthttp.NewServices(cfg, deps)
	router := transporthttp.NewRouter(cfg, deps, svcs)

	var reminders *scheduler.Reminders
	if cfg.ReminderCron != "" {
		reminders = scheduler.NewReminders(svcs.Reminder, cfg.ReminderCron, cfg.NotifyWindowHours)
		if err := reminders.Start(); err != nil {
			fatal("reminder schedule", err)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if reminders != nil {
		select {
		case <-reminders.Stop().Done():
		case <-shutdownCtx.Done():
			slog.Warn("reminder run still active at shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
		return
	}
	slog.Info("server stopped")
}

func newObjectStore(ctx context.Context, cfg *config.Config) (bucketStore, error) {
	switch cfg.StorageBackend {
	case "minio":
		return minioinfra.NewStore(cfg)
	case "s3", "":
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3infra.NewStore(client, cfg.S3BucketName), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func initLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var handler slog.Handler
	if cfg.AppEnv == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fatal(what string, err error) {
	slog.Error(what+" failed", "error", err)
	os.Exit(1)
}
