// Package app wires configuration, storage and services into a runnable backend.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campuscoin/internal/config"
	"campuscoin/internal/db"
	"campuscoin/internal/events"
	"campuscoin/internal/handlers"
	"campuscoin/internal/services"
	"campuscoin/internal/settings"
	"campuscoin/internal/store"
)

type App struct {
	DB       *sqlx.DB
	TxRunner db.TxRunner
	Logger   *zap.Logger

	Users  *store.UserStore
	Admin  *store.AdminStore
	Ledger *store.LedgerStore
	Audit  *store.AuditStore

	WeeklyCredits *services.WeeklyCreditService
	Handler       *handlers.Handler

	closers []func()
}

// New connects to Postgres plus the optional Redis and NATS backends and
// builds every store and service on top of them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a := &App{DB: database, TxRunner: db.NewTxRunner(database), Logger: logger}
	a.closers = append(a.closers, func() { _ = database.Close() })

	bus, err := events.Connect(cfg.NatsURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if natsBus, ok := bus.(*events.NATSBus); ok {
		a.closers = append(a.closers, natsBus.Close)
	}
	publisher := events.NewPublisher(bus, logger.Named("events"))

	users := store.NewUserStore(database)
	admin := store.NewAdminStore(database)
	wallets := store.NewWalletStore(database)
	ledger := store.NewLedgerStore(database)
	credits := store.NewWeeklyCreditStore(database)
	redemptions := store.NewRedemptionStore(database)
	attendance := store.NewAttendanceStore(database)
	payments := store.NewMessPaymentStore(database)
	settingsStore := store.NewSettingsStore(database)
	reports := store.NewReportStore(database)
	audit := store.NewAuditStore(database)
	a.Users, a.Admin, a.Ledger, a.Audit = users, admin, ledger, audit

	var provider settings.Provider = settings.NewStoreProvider(settingsStore)
	var cache handlers.SettingsCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, settings are read uncached", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = client.Close()
		} else {
			cached := settings.NewCachedProvider(provider, client, cfg.SettingsCacheTTL, logger.Named("settings"))
			provider, cache = cached, cached
			a.closers = append(a.closers, func() { _ = client.Close() })
		}
	}

	recorder := services.NewRecorder(a.TxRunner, wallets, ledger, publisher, logger.Named("recorder"))
	a.WeeklyCredits = services.NewWeeklyCreditService(a.TxRunner, recorder, credits, attendance, audit, provider,
		cfg.WeeklyCreditWorkers, publisher, logger.Named("weekly_credit"))
	redemptionService := services.NewRedemptionService(a.TxRunner, recorder, wallets, redemptions, audit, provider, publisher, logger.Named("redemption"))
	messService := services.NewMessService(a.TxRunner, recorder, wallets, payments, audit, provider, logger.Named("mess"))
	attendanceService := services.NewAttendanceService(a.TxRunner, attendance, audit, logger.Named("attendance"))

	a.Handler = handlers.New(cfg, handlers.Deps{
		TxRunner:            a.TxRunner,
		Users:               users,
		Admin:               admin,
		Wallets:             wallets,
		Ledger:              ledger,
		WeeklyCredits:       credits,
		Redemptions:         redemptions,
		Attendance:          attendance,
		Payments:            payments,
		Settings:            settingsStore,
		Reports:             reports,
		Audit:               audit,
		SettingsCache:       cache,
		WeeklyCreditService: a.WeeklyCredits,
		RedemptionService:   redemptionService,
		MessService:         messService,
		AttendanceService:   attendanceService,
	}, logger.Named("http"))
	return a, nil
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
