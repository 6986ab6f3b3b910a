package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "auction-ledger/internal/biddingService"
	"auction-ledger/internal/config"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/notify"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/server"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}

	utils.SetLevel(cfg.App.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, checks, closeRepo := openStorage(ctx, cfg)
	defer closeRepo()

	notifier, redisCheck, closeNotifier := openNotifier(ctx, cfg)
	defer closeNotifier()
	if redisCheck != nil {
		checks = append(checks, redisCheck)
	}

	biddingSvc := bidding.NewBiddingService(repo, notifier)

	if cfg.SeedDemo {
		seedDemoData(ctx, biddingSvc)
	}

	sweeper := biddingSvc.Sweeper()
	if err := sweeper.Start(cfg.Sweeper.Schedule); err != nil {
		utils.Fatal("failed to start sweeper", map[string]any{"error": err.Error()})
	}
	defer sweeper.Stop()

	router := server.SetupRouter(biddingSvc, checks...)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "env": cfg.App.Environment, "storage": cfg.Storage.Driver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
	}
}

// openStorage returns the configured store, its health checks and a close func
func openStorage(ctx context.Context, cfg *config.Config) (repository.AuctionDB, []server.HealthCheck, func()) {
	if cfg.Storage.Driver != config.DriverPostgres {
		return repository.NewMemoryRepo(), nil, func() {}
	}

	db, err := repository.OpenPostgres(ctx, cfg.Storage.DSN)
	if err != nil {
		utils.Fatal("failed to open postgres", map[string]any{"error": err.Error()})
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			utils.Warn("closing postgres", map[string]any{"error": err.Error()})
		}
	}
	return repository.NewPostgresRepo(db), []server.HealthCheck{pingDB(db)}, closeDB
}

func pingDB(db *sql.DB) server.HealthCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

// openNotifier uses Redis when REDIS_ADDR is set and falls back to logging
func openNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, server.HealthCheck, func()) {
	if cfg.Redis.Addr == "" {
		return notify.LogNotifier{}, nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		utils.Warn("redis unreachable at startup, notifications may be lost", map[string]any{"addr": cfg.Redis.Addr, "error": err.Error()})
	}

	check := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	closeClient := func() {
		if err := client.Close(); err != nil {
			utils.Warn("closing redis", map[string]any{"error": err.Error()})
		}
	}
	return notify.NewRedisNotifier(client), check, closeClient
}

// seedDemoData creates a few sample auctions owned by a demo seller
func seedDemoData(ctx context.Context, svc *bidding.BiddingService) {
	seller := model.UserContext{UserID: "demo-seller", Role: model.RoleRegular}
	samples := []model.AuctionInput{
		{Title: "Mechanical keyboard", Description: "Tenkeyless, brown switches", CategoryID: "electronics", StartingPrice: decimal.NewFromInt(100), Deadline: time.Now().Add(24 * time.Hour)},
		{Title: "Film camera", Description: "35mm rangefinder", CategoryID: "photography", StartingPrice: decimal.NewFromInt(200), Deadline: time.Now().Add(48 * time.Hour)},
		{Title: "Road bike", Description: "56cm steel frame", CategoryID: "sports", StartingPrice: decimal.NewFromInt(150), Deadline: time.Now().Add(time.Hour)},
	}

	for _, in := range samples {
		a, err := svc.CreateAuction(ctx, seller, in)
		if err != nil {
			utils.Warn("seed: failed to create auction", map[string]any{"title": in.Title, "error": err.Error()})
			continue
		}
		utils.Info("seed: auction created", map[string]any{"auction_id": a.AuctionID, "title": a.Title})
	}
}
