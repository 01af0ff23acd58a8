package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"

	"playermodels-api/internal/cache"
	"playermodels-api/internal/catalog"
	"playermodels-api/internal/config"
	"playermodels-api/internal/handler"
	"playermodels-api/internal/repository"
	"playermodels-api/internal/router"
	"playermodels-api/internal/service"
	"playermodels-api/internal/wallet"
)

func main() {
	cfg := config.MustLoad()
	log.Printf("[Main] starting %s (%s)", cfg.App.Name, cfg.App.Environment)

	ledger, err := openLedger(cfg.Ledger)
	if err != nil {
		log.Fatalf("[Main] ledger init failed: %v", err)
	}
	defer ledger.Close()
	log.Printf("[Main] ledger backend: %s", cfg.Ledger.Type)

	var w wallet.Wallet
	if cfg.Wallet.Enabled {
		redisWallet, err := wallet.NewRedisWallet(wallet.RedisWalletConfig{
			Addr:      cfg.Wallet.RedisAddr(),
			Password:  cfg.Wallet.Password,
			DB:        cfg.Wallet.DB,
			KeyPrefix: cfg.Wallet.KeyPrefix,
		})
		if err != nil {
			log.Fatalf("[Main] wallet init failed: %v", err)
		}
		defer redisWallet.Close()
		w = redisWallet
		log.Printf("[Main] wallet connected: %s", cfg.Wallet.RedisAddr())
	} else {
		log.Println("[Main] wallet disabled, purchases of priced models will fail")
	}

	var audit repository.AuditLog
	if cfg.Audit.MongoURI != "" {
		mongoAudit, err := repository.NewMongoDBAuditLog(cfg.Audit.MongoURI, cfg.Audit.Database, cfg.Audit.Collection)
		if err != nil {
			log.Fatalf("[Main] audit sink init failed: %v", err)
		}
		defer mongoAudit.Close()
		audit = mongoAudit
		log.Printf("[Main] audit sink connected: %s/%s", cfg.Audit.Database, cfg.Audit.Collection)
	}

	cat, err := catalog.New(cfg.Models.CatalogPath)
	if err != nil {
		log.Fatalf("[Main] catalog load failed: %v", err)
	}
	log.Printf("[Main] catalog loaded: %d models", len(cat.All()))

	modelCache := cache.New(ledger)

	orchestrator := service.New(cat, ledger, modelCache, w, audit, service.Config{
		PurchaseEnabled:    cfg.Purchase.Enabled,
		WalletKind:         cfg.Wallet.Kind,
		ImmediateApply:     cfg.Models.ImmediateApply,
		DefaultCTModelPath: cfg.Models.DefaultCTModelPath,
		DefaultTModelPath:  cfg.Models.DefaultTModelPath,
		MaxAdjustAmount:    cfg.Purchase.MaxAdjustAmount,
	})

	credits := service.NewCreditsService(w, ledger, service.CreditsConfig{
		WalletKind:         cfg.Wallet.Kind,
		StartingBalance:    cfg.Credits.StartingBalance,
		OncePerPlayer:      cfg.Credits.OncePerPlayer,
		TimedIncomeEnabled: cfg.Credits.TimedIncomeEnabled,
		IncomeInterval:     cfg.Credits.IncomeInterval,
		IncomeAmount:       cfg.Credits.IncomeAmount,
		VipMultiplier:      cfg.Credits.VipMultiplier,
		MinOnlineTime:      cfg.Credits.MinOnlineTime,
	})
	credits.Start()
	defer credits.Stop()

	healthHandler := handler.NewHealthHandler(cfg.App.Name, cfg.App.Environment, nil)
	modelsHandler := handler.NewModelsHandler(cat)
	playerHandler := handler.NewPlayerHandler(orchestrator, credits, ledger)
	adminHandler := handler.NewAdminHandler(orchestrator, cat, audit)

	h := router.New(healthHandler, modelsHandler, playerHandler, adminHandler, cfg.Auth.APIKeys)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("[Main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Main] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Main] forced shutdown: %v", err)
	}
	log.Println("[Main] stopped")
}

func openLedger(cfg config.LedgerConfig) (repository.Ledger, error) {
	switch cfg.Type {
	case "sqlite":
		return repository.NewSQLiteLedger(cfg.SQLitePath)
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		return repository.NewMySQLLedger(db, cfg.AutoCreate)
	case "postgres":
		return repository.NewPostgresLedger(cfg.PostgresDSN, cfg.AutoCreate)
	default:
		return nil, fmt.Errorf("unsupported ledger db type %q", cfg.Type)
	}
}
