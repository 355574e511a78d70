package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/store"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "accountd: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "accountd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := accounts.NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("configuration:\n%s", print.MaybePrettyJSON(cfg.Redacted()))

	db, dialect, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := accounts.RunMigrations(ctx, db.DB, dialect); err != nil {
		return err
	}

	repo, err := accounts.NewRepositoryManager(db,
		store.WithLogger(logger),
		store.WithAuditSink(accounts.NewLoggerAuditSink(logger)),
	)
	if err != nil {
		return err
	}

	mailer, closeMailer := newMailer(cfg, logger)
	defer closeMailer()

	svc := accounts.NewService(repo,
		accounts.WithServiceLogger(logger),
		accounts.WithPasswordHasher(newHasher(cfg)),
		accounts.WithMailer(mailer),
		accounts.WithTokenTTL(cfg.GetTokenTTL()),
		accounts.WithDefaultRole(accounts.Role(cfg.DefaultRole)),
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
		}))
	})

	accounts.RegisterAccountRoutes(srv.Router(), svc,
		accounts.WithLinkBase(cfg.GetPublicBaseURL()),
		accounts.WithControllerLogger(logger),
		accounts.WithDebug(cfg.Debug),
	)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.HTTPAddr)
		errc <- srv.Serve(cfg.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDB(cfg *Config) (*bun.DB, string, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		sqldb, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, "", err
		}
		return bun.NewDB(sqldb, pgdialect.New()), "pgx", nil
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
		if err != nil {
			return nil, "", err
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), "sqlite3", nil
	}
}

func newHasher(cfg *Config) accounts.PasswordHasher {
	if cfg.Hasher == "bcrypt" {
		return accounts.NewBcryptHasher(cfg.BcryptCost)
	}
	return accounts.NewArgon2Hasher()
}

func newMailer(cfg *Config, logger accounts.Logger) (accounts.Mailer, func()) {
	if cfg.Mailer != "redis" {
		return accounts.LogMailer{Logger: logger}, func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return accounts.NewRedisQueueMailer(client, cfg.RedisQueueKey), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client: %v", err)
		}
	}
}
