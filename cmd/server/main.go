package main

import (
	"alcyxob/weight-tracker/internal/api"
	"alcyxob/weight-tracker/internal/cache"
	"alcyxob/weight-tracker/internal/config"
	"alcyxob/weight-tracker/internal/logging"
	"alcyxob/weight-tracker/internal/queue"
	"alcyxob/weight-tracker/internal/repository/mongo"
	"alcyxob/weight-tracker/internal/service"
	"alcyxob/weight-tracker/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Weight Goal Tracker API
// @version 1.0
// @description API for weight profiles, weight-loss goals, goal history and weight entries.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logging.New("info", "json").WithError(err).Fatal("could not load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	logger.WithField("seeding", cfg.Seeding.Mode).Info("starting weight tracker server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.WithError(err).Fatal("could not connect to MongoDB")
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.WithError(err).Error("failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), time.Minute)
	if err := mongo.EnsureIndexes(indexCtx, appDB, logger); err != nil {
		logger.WithError(err).Fatal("could not create database indexes")
	}
	cancelIndex()

	// --- Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	entryRepo := mongo.NewMongoWeightEntryRepository(appDB)

	// --- Profile cache ---
	profiles := cache.NewNoopProfileCache()
	if cfg.Redis.Enabled() {
		rdb := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = rdb.Close() }()
		profiles = cache.NewRedisProfileCache(rdb, cfg.Redis.TTL)
		logger.WithField("addr", cfg.Redis.Addr).Info("profile cache enabled")
	}

	// --- History export storage ---
	var files storage.FileStorage
	if cfg.S3.Enabled() {
		files, err = storage.NewS3Storage(context.Background(), cfg.S3, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize S3 storage")
		}
	} else {
		logger.Info("s3 bucket not configured, history export disabled")
	}

	// --- Seeding dispatcher ---
	seeder := service.NewWeightSeeder(entryRepo, logger)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var dispatcher queue.Dispatcher
	switch cfg.Seeding.Mode {
	case config.SeedingModeRabbitMQ:
		rabbit, err := queue.NewRabbitDispatcher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.WithError(err).Fatal("could not connect to RabbitMQ")
		}
		defer rabbit.Close()
		dispatcher = rabbit
	default:
		memory := queue.NewMemoryDispatcher(seeder.Seed, cfg.Seeding.Buffer, logger)
		memory.Start(workerCtx, cfg.Seeding.Workers)
		defer memory.Stop()
		dispatcher = memory
	}

	// --- Services ---
	goalService := service.NewGoalService(userRepo, entryRepo, dispatcher, profiles, logger, cfg.Goals.SaveAttempts)
	services := api.Services{
		Auth:          service.NewAuthService(userRepo, goalService, cfg.JWT.Secret, cfg.JWT.Expiration),
		Goals:         goalService,
		WeightEntries: service.NewWeightEntryService(userRepo, entryRepo),
		History:       service.NewHistoryService(userRepo, entryRepo, files, cfg.S3.ExportURLExpiry, logger),
	}

	// --- Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg.JWT.Secret, logger, services)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("address", cfg.Server.Address).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("ListenAndServe failed")
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	// Deferred calls drain the seed queue before the database goes away.
	logger.Info("server exiting")
}
