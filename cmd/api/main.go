package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/greenloop/carbon-market/internal/api"
	"github.com/greenloop/carbon-market/internal/auth"
	"github.com/greenloop/carbon-market/internal/config"
	"github.com/greenloop/carbon-market/internal/db"
	"github.com/greenloop/carbon-market/internal/logger"
	"github.com/greenloop/carbon-market/internal/metrics"
	"github.com/greenloop/carbon-market/internal/middleware"
	"github.com/greenloop/carbon-market/internal/notify"
	"github.com/greenloop/carbon-market/internal/repository/postgres"
	"github.com/greenloop/carbon-market/internal/scheduler"
	"github.com/greenloop/carbon-market/internal/services"
	"github.com/greenloop/carbon-market/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTSecret+"-refresh", cfg.JWTIssuer, 15*time.Minute, 7*24*time.Hour)
	sink := notify.LogSink{Log: log}

	userSvc := services.NewUserService(repos.Users, tm)
	walletSvc := services.NewWalletService(repos.Wallets)
	settlementSvc := services.NewSettlementService(repos.Listings, repos.Credits, repos.Transactions, repos.AuditLogs, walletSvc, sink, wp)
	creditSvc := services.NewCreditService(repos.Credits, repos.AuditLogs, walletSvc)
	listingSvc := services.NewListingService(repos.Listings, repos.Credits, repos.Bids, repos.AuditLogs, settlementSvc)
	disputeSvc := services.NewDisputeService(repos.Disputes, repos.Transactions, repos.Credits, repos.AuditLogs, walletSvc, sink, wp)

	metrics.Init()
	r := api.NewRouter(api.Deps{
		Cfg:        cfg,
		Auth:       middleware.NewAuthMiddleware(tm),
		UserSvc:    userSvc,
		WalletSvc:  walletSvc,
		CreditSvc:  creditSvc,
		ListingSvc: listingSvc,
		DisputeSvc: disputeSvc,
	})

	go scheduler.NewSweeper(listingSvc, cfg.SweepInterval).Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
