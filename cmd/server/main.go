package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listingsite/server/config"
	"listingsite/server/internal/api"
	"listingsite/server/internal/browse"
	"listingsite/server/internal/catalog"
	"listingsite/server/internal/database"
	"listingsite/server/internal/models"
	"listingsite/server/internal/normalizer"
	"listingsite/server/internal/scheduler"
	"listingsite/server/internal/wordpress"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithError(err).Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}

	// Featured filters for the filter bar
	filterStore := config.NewFilterCatalogStore(cfg.FiltersFile)
	if err := filterStore.Load(); err != nil {
		logger.WithError(err).Error("Failed to load filter catalog, using defaults")
	}

	// Optional last-good snapshot store
	var store catalog.SnapshotStore
	if cfg.Snapshot.DBPath != "" {
		logger.Infof("Using snapshot database at: %s", cfg.Snapshot.DBPath)
		db, err := database.NewDatabase(cfg.Snapshot.DBPath, database.RetryPolicy{
			MaxRetries: cfg.Snapshot.MaxRetries,
			RetryDelay: cfg.SnapshotRetryDelay(),
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize snapshot database")
		}
		defer db.Close()

		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			logger.WithError(err).Fatal("Failed to run database migrations")
		}
		store = db
	}

	source := wordpress.NewClient(wordpress.Options{
		Endpoint:  cfg.Source.URL,
		PerPage:   cfg.Source.PerPage,
		Timeout:   cfg.FetchTimeout(),
		UserAgent: cfg.Source.UserAgent,
	}, logger)

	listingNormalizer := normalizer.NewNormalizer(normalizer.Options{
		CategoryPrefix:   cfg.Listings.CategoryPrefix,
		ImageSize:        cfg.Listings.ImageSize,
		PlaceholderImage: cfg.Listings.PlaceholderImage,
		DefaultOffers: models.Offers{
			Beds:      cfg.Listings.DefaultBeds,
			Showers:   cfg.Listings.DefaultShowers,
			Occupants: cfg.Listings.DefaultOccupants,
		},
	}, logger)

	listingCatalog := catalog.NewCatalog(source, listingNormalizer, store, logger)
	refresher := scheduler.NewScheduler(listingCatalog, logger, cfg.RefreshInterval(), cfg.FetchTimeout()*2)

	// Load the collection before serving any page
	logger.Info("Loading listing catalog...")
	refresher.RunOnce()
	refresher.Start()
	defer refresher.Stop()

	gin.SetMode(gin.ReleaseMode)
	hero := api.NewHero(cfg.Listings.HeroImage)
	handler := api.NewHandler(listingCatalog, refresher, filterStore, browse.NewEngine(cfg.Listings.PageSize), hero, logger)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}
