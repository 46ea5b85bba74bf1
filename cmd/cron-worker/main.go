package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/billing"
	"github.com/lonchera-pe/cantina-backend/internal/cron"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/recharges"
	"github.com/lonchera-pe/cantina-backend/internal/schools"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
	"github.com/lonchera-pe/cantina-backend/pkg/metrics"
	"github.com/lonchera-pe/cantina-backend/pkg/migrate"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox"
	"github.com/lonchera-pe/cantina-backend/pkg/redis"
)

const lockKeyFormat = "cantina:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	if err := registerJobs(registry, cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func registerJobs(registry *cron.Registry, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) error {
	gormDB := dbClient.DB()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		return err
	}
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	schoolsSvc, err := schools.NewService(schools.NewRepository(gormDB), dbClient, cfg.Lunch)
	if err != nil {
		return err
	}
	accountsRepo := accounts.NewRepository(gormDB)
	accountsSvc, err := accounts.NewService(accountsRepo, ledgerSvc, schoolsSvc)
	if err != nil {
		return err
	}

	rechargesSvc, err := recharges.NewService(
		recharges.NewRepository(gormDB),
		dbClient,
		ledgerSvc,
		outboxSvc,
		accountsRepo,
		cfg.Recharge,
		logg,
	)
	if err != nil {
		return err
	}

	billingSvc, err := billing.NewService(
		billing.NewRepository(gormDB),
		dbClient,
		ledgerSvc,
		accountsRepo,
		accountsSvc,
		outboxSvc,
		logg,
	)
	if err != nil {
		return err
	}

	rechargeJob, err := cron.NewRechargeExpiryJob(cron.RechargeExpiryJobParams{
		Logger:    logg,
		Recharges: rechargesSvc,
	})
	if err != nil {
		return err
	}
	registry.Register(rechargeJob)

	billingJob, err := cron.NewBillingRolloverJob(cron.BillingRolloverJobParams{
		Logger:  logg,
		Billing: billingSvc,
	})
	if err != nil {
		return err
	}
	registry.Register(billingJob)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(gormDB),
		Retention:   cfg.Outbox.RetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return err
	}
	registry.Register(retentionJob)

	return nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
