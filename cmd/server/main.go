package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/aggregation"
	"eventhorizon/internal/auth"
	"eventhorizon/internal/config"
	cronrunner "eventhorizon/internal/cron"
	"eventhorizon/internal/db"
	"eventhorizon/internal/handler"
	"eventhorizon/internal/logger"
	"eventhorizon/internal/marketfeed"
	"eventhorizon/internal/models"
	gormrepository "eventhorizon/internal/repository/gorm"
	"eventhorizon/internal/resolution"
	"eventhorizon/internal/scoring"
	"eventhorizon/internal/service"
)

func main() {
	cfgPath := os.Getenv("EH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("EH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	feedClient := marketfeed.NewClient(cfg.Feed, logger)

	updater := &scoring.Updater{Repo: store, Logger: logger}
	aggregator := &aggregation.Aggregator{Repo: store, Logger: logger}
	coordinator := &resolution.Coordinator{
		Repo:    store,
		Feed:    feedClient,
		Updater: updater,
		Logger:  logger,
	}
	predictionSvc := &service.PredictionService{Repo: store, Logger: logger}
	catalogSvc := &service.CatalogSyncService{
		Repo:      store,
		Feed:      feedClient,
		Logger:    logger,
		PageLimit: cfg.Feed.PageLimit,
	}
	authSvc := &auth.Service{
		Repo:     store,
		Verifier: auth.HMACVerifier{Secret: []byte(cfg.Auth.JWTSecret)},
		Config:   cfg.Auth,
		Logger:   logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	authHandler := &handler.AuthHandler{Service: authSvc, Logger: logger}
	authHandler.Register(engine)
	predictionHandler := &handler.PredictionHandler{Service: predictionSvc, Auth: authSvc, Logger: logger}
	predictionHandler.Register(engine)
	signalHandler := &handler.SignalHandler{Aggregator: aggregator, Logger: logger}
	signalHandler.Register(engine)
	resolutionHandler := &handler.ResolutionHandler{Repo: store, Coordinator: coordinator, Logger: logger}
	resolutionHandler.Register(engine)
	leaderboardHandler := &handler.LeaderboardHandler{Repo: store, Logger: logger}
	leaderboardHandler.Register(engine)
	marketHandler := &handler.MarketHandler{
		Repo:        store,
		Feed:        feedClient,
		Sync:        catalogSvc,
		Logger:      logger,
		HistoryDays: cfg.Feed.HistoryDays,
	}
	marketHandler.Register(engine)
	seriesHandler := &handler.SeriesHandler{Repo: store, Logger: logger}
	seriesHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add("resolution_sweep", cfg.Cron.ResolutionSweep, func(ctx context.Context) {
			counts, err := coordinator.CheckForResolutions(ctx)
			if err != nil {
				logger.Warn("cron resolution sweep failed", zap.Error(err))
				return
			}
			if counts.Resolved > 0 {
				logger.Info("cron resolution sweep ok",
					zap.Int("checked", counts.Checked),
					zap.Int("resolved", counts.Resolved),
					zap.Int("scored", counts.Scored),
				)
			}
		})
		if err != nil {
			logger.Fatal("cron add resolution sweep failed", zap.Error(err))
		}
		_, err = cronRunner.Add("catalog_refresh", cfg.Cron.CatalogRefresh, func(ctx context.Context) {
			result, err := catalogSvc.Sync(ctx)
			if err != nil {
				logger.Warn("cron catalog refresh failed", zap.Error(err))
				return
			}
			logger.Info("cron catalog refresh ok",
				zap.Int("pages", result.Pages),
				zap.Int("markets", result.Markets),
			)
		})
		if err != nil {
			logger.Fatal("cron add catalog refresh failed", zap.Error(err))
		}
		_, err = cronRunner.Add("nonce_cleanup", cfg.Cron.NonceCleanup, func(ctx context.Context) {
			removed, err := authSvc.CleanupExpiredNonces(ctx)
			if err != nil {
				logger.Warn("cron nonce cleanup failed", zap.Error(err))
				return
			}
			if removed > 0 {
				logger.Info("cron nonce cleanup ok", zap.Int64("removed", removed))
			}
		})
		if err != nil {
			logger.Fatal("cron add nonce cleanup failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.Stream.Enabled {
		stream := marketfeed.NewStream(marketfeed.StreamOptions{
			URL:    cfg.Stream.URL,
			Logger: logger,
		})
		go func() {
			err := stream.Run(ctx, func(tick marketfeed.PriceTick) {
				point := models.SignalPoint{
					SeriesSlug: tick.MarketID,
					Date:       time.UnixMilli(tick.Timestamp).UTC().Truncate(24 * time.Hour),
					P:          tick.Price,
					Liquidity:  models.DefaultLiquidity,
				}
				if tick.Liquidity != nil && *tick.Liquidity > 0 {
					point.Liquidity = *tick.Liquidity
				}
				upsertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				if err := store.UpsertSignalPoints(upsertCtx, []models.SignalPoint{point}); err != nil {
					logger.Warn("stream point upsert failed", zap.Error(err))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("feed stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
