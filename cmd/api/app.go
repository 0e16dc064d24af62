package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"talkline/internal/audit"
	"talkline/internal/auth"
	"talkline/internal/billing"
	"talkline/internal/calls"
	"talkline/internal/config"
	"talkline/internal/httpapi"
	"talkline/internal/moderation"
	"talkline/internal/payout"
	"talkline/internal/reporting"
	"talkline/pkg/logger"
	"talkline/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// app is the wired service graph shared by every command.
type app struct {
	cfg config.Config
	log *slog.Logger
	db  *sql.DB
	rdb *redis.Client

	auth       *auth.Manager
	accounts   *moderation.PostgresSubjects
	sessions   *calls.Service
	packages   *billing.PostgresPackages
	billing    *billing.Reconciler
	moderation *moderation.Service
	payouts    *payout.Service
	reporting  *reporting.Service
}

// loadConfig reads config and installs the default logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config load failed: %w", err)
	}
	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	return cfg, log, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("postgres init failed: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := openPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis init failed: %w", err)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		_ = rdb.Close()
		_ = db.Close()
		return nil, fmt.Errorf("auth init failed: %w", err)
	}
	// Revocation markers only need to outlive the longest token.
	revocations := auth.NewRedisRevocations(rdb, authManager.RefreshTTL())
	authManager.WithRevocations(revocations)

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	sessions := calls.NewService(calls.NewPostgresRepo(db), calls.Options{
		LowMinutesWarning: cfg.Engine.LowMinutesWarning,
		NotifyTimeout:     cfg.Engine.NotifyTimeout,
		Notifier:          calls.NewRedisNotifier(rdb),
		Slots:             calls.NewRedisSlots(rdb),
		Logger:            log,
	})

	packages := billing.NewPostgresPackages(db)
	payouts := payout.NewService(payout.NewPostgresRepo(db))
	reconciler := billing.NewReconciler(sessions, packages, billing.NewPostgresStore(db), payout.NewSink(payouts), auditSvc, log)

	accounts := moderation.NewPostgresSubjects(db)
	modStore := moderation.NewPostgresStore(db)
	mod := moderation.NewService(
		moderation.NewLedger(modStore, accounts, auditSvc),
		moderation.NewController(modStore, auth.NewRevoker(revocations), auditSvc, log),
	)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		rdb:        rdb,
		auth:       authManager,
		accounts:   accounts,
		sessions:   sessions,
		packages:   packages,
		billing:    reconciler,
		moderation: mod,
		payouts:    payouts,
		reporting:  reporting.NewService(reporting.NewPostgresRepo(db)),
	}, nil
}

func (a *app) handlers(identity auth.IdentityVerifier) httpapi.Handlers {
	return httpapi.Handlers{
		Auth:       a.auth,
		Identity:   identity,
		Accounts:   a.accounts,
		Sessions:   a.sessions,
		Packages:   a.packages,
		Billing:    a.billing,
		Moderation: a.moderation,
		Payouts:    a.payouts,
		Reporting:  a.reporting,
	}
}

func (a *app) Close() {
	_ = a.rdb.Close()
	_ = a.db.Close()
}
