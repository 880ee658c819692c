package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/assistly/assistant-backend/internal/config"
	"github.com/assistly/assistant-backend/internal/database"
	"github.com/assistly/assistant-backend/internal/handler"
	"github.com/assistly/assistant-backend/internal/queue"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/router"
	"github.com/assistly/assistant-backend/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env != "prod" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: without it tenant resolution hits MySQL on every
	// request and rate limiting / response caching are disabled.
	rdb := config.NewRedisClient()

	store := repository.NewStore(db)
	tenants := repository.NewTenantRepo(db)
	users := repository.NewUserRepo(db)
	creds := repository.NewCredentialRepo(db)
	redeems := repository.NewRedeemRepo(db)
	ads := repository.NewAdRepo(db)

	resolver := service.NewTenantResolver(tenants, rdb, cfg.TenantCacheTTL)
	engine := service.NewCredentialEngine(store, creds, service.DefaultCredentialPolicy())
	ledger := service.NewCreditLedger(store, users, redeems)
	accounts := service.NewAccountService(store, users, engine, service.NewAMQPNotifier(), cfg.BcryptCost)

	// Email consumer drains the broker queue in-process. It reconnects on
	// its own; a dead broker only delays mail.
	go func() {
		if err := queue.StartEmailConsumer(); err != nil {
			logger.Warn("email consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		Cfg:      cfg,
		Rdb:      rdb,
		Resolver: resolver,
		Users:    users,
		Auth:     handler.NewAuthHandler(cfg, accounts, users),
		Invite:   handler.NewInviteHandler(accounts),
		Me:       handler.NewMeHandler(users, cfg.BcryptCost),
		Credit:   handler.NewCreditHandler(ledger, ads),
		Admin:    handler.NewAdminHandler(tenants, redeems, ads, resolver),
	})

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
