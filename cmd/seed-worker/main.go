// Command seed-worker consumes goal-start seed tasks from RabbitMQ and writes the first weight entry of each goal.
package main

import (
	"alcyxob/weight-tracker/internal/config"
	"alcyxob/weight-tracker/internal/logging"
	"alcyxob/weight-tracker/internal/queue"
	"alcyxob/weight-tracker/internal/repository/mongo"
	"alcyxob/weight-tracker/internal/service"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const prefetch = 16

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logging.New("info", "json").WithError(err).Fatal("could not load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexCtx, cancelIndex := context.WithTimeout(ctx, time.Minute)
	err = mongo.EnsureIndexes(indexCtx, appDB, logger)
	cancelIndex()
	if err != nil {
		logger.WithError(err).Error("could not create database indexes")
		return
	}

	seeder := service.NewWeightSeeder(mongo.NewMongoWeightEntryRepository(appDB), logger)

	workers := cfg.Seeding.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return queue.Consume(gctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, prefetch, seeder.Seed, logger)
		})
	}

	logger.WithField("workers", workers).Info("seed worker started")
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("seed worker stopped")
		return
	}
	logger.Info("seed worker exiting")
}
