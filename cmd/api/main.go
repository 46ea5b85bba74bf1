package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/lonchera-pe/cantina-backend/api/routes"
	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/auth"
	"github.com/lonchera-pe/cantina-backend/internal/billing"
	"github.com/lonchera-pe/cantina-backend/internal/inventory"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/lunchorders"
	"github.com/lonchera-pe/cantina-backend/internal/menus"
	"github.com/lonchera-pe/cantina-backend/internal/recharges"
	"github.com/lonchera-pe/cantina-backend/internal/schools"
	"github.com/lonchera-pe/cantina-backend/internal/users"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
	"github.com/lonchera-pe/cantina-backend/pkg/migrate"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox"
	"github.com/lonchera-pe/cantina-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gormDB := dbClient.DB()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	schoolsSvc, err := schools.NewService(schools.NewRepository(gormDB), dbClient, cfg.Lunch)
	if err != nil {
		return routes.Services{}, err
	}

	accountsRepo := accounts.NewRepository(gormDB)
	accountsSvc, err := accounts.NewService(accountsRepo, ledgerSvc, schoolsSvc)
	if err != nil {
		return routes.Services{}, err
	}

	usersRepo := users.NewRepository(gormDB)
	usersSvc, err := users.NewService(usersRepo, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Users:     usersRepo,
		Passwords: auth.ArgonVerifier{},
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

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
		return routes.Services{}, err
	}

	menusSvc, err := menus.NewService(menus.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	ordersSvc, err := lunchorders.NewService(lunchorders.ServiceParams{
		Repo:     lunchorders.NewRepository(gormDB),
		Tx:       dbClient,
		Ledger:   ledgerSvc,
		Limits:   accountsSvc,
		Accounts: accountsRepo,
		Menus:    menus.NewRepository(gormDB),
		Schools:  schoolsSvc,
		Outbox:   outboxSvc,
	})
	if err != nil {
		return routes.Services{}, err
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
		return routes.Services{}, err
	}

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authSvc,
		Users:       usersSvc,
		Schools:     schoolsSvc,
		Accounts:    accountsSvc,
		Recharges:   rechargesSvc,
		LunchOrders: ordersSvc,
		Menus:       menusSvc,
		Billing:     billingSvc,
		Inventory:   inventorySvc,
	}, nil
}
