package main

import (
	"context"
	"database/sql"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/events"
	"github.com/stoa-market/stoa-market-api/internal/handlers"
	"github.com/stoa-market/stoa-market-api/internal/repository"
	"github.com/stoa-market/stoa-market-api/internal/server"
	"github.com/stoa-market/stoa-market-api/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	logger.WithField("port", cfg.Server.Port).Info("Starting stoa-market-api")

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.WithField("error", err.Error()).Fatal("Failed to connect to database")
	}
	defer db.Close()

	productRepo := repository.NewPostgresProductRepository(db, logger)
	orderRepo := repository.NewPostgresOrderRepository(db, logger)
	favoriteRepo := repository.NewPostgresFavoriteRepository(db, logger)
	userRepo := repository.NewPostgresUserRepository(db, logger)

	orderCache := repository.NewRedisOrderCache(cfg.Redis, logger)
	cartStore := repository.NewRedisCartStore(cfg.Redis, logger)

	publisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	cartService := service.NewCartService(cartStore, productRepo, logger)
	checkoutService := service.NewCheckoutService(orderRepo, productRepo, userRepo, cartStore, orderCache, publisher, cfg.Features, logger)
	statusService := service.NewOrderStatusService(orderRepo, orderCache, publisher, cfg.Features, logger)
	listingService := service.NewListingService(orderRepo, logger)
	recommendationService := service.NewRecommendationService(productRepo, orderRepo, favoriteRepo, rng, logger)
	catalogService := service.NewCatalogService(productRepo, logger)
	favoriteService := service.NewFavoriteService(favoriteRepo, productRepo, logger)
	adminService := service.NewAdminService(orderRepo, orderCache, cfg.Features, logger)

	h := handlers.NewHandlers(
		cartService,
		checkoutService,
		statusService,
		listingService,
		recommendationService,
		catalogService,
		favoriteService,
		adminService,
		cartStore,
		userRepo,
		cfg,
		logger,
	)

	srv := server.New(h, cfg)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err.Error()).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithField("error", err.Error()).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config, logger *logrus.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Database connected")

	return db, nil
}
