package main

import (
	"os"

	"homescout/server/config"
	"homescout/server/internal/api"
	"homescout/server/internal/cache"
	"homescout/server/internal/commute"
	"homescout/server/internal/enrichment"
	"homescout/server/internal/geocoding"
	"homescout/server/internal/listings"
	"homescout/server/internal/propertydb"
	"homescout/server/internal/remote"
	"homescout/server/internal/rentals"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Session cache shared by the gateway and the store client. Snapshots to
	// disk when a cache directory is configured.
	sessionCache := cache.NewMemory(logger, cfg.SessionCacheDir)

	gateway := remote.NewGateway(logger, sessionCache, cfg.Remote.ProxyURL, cfg.Store.Secret)
	geocoder := geocoding.NewGeocoder(logger, gateway, cfg.Remote.GeocodingBaseURL, cfg.Remote.GeocodingAPIKey)
	source := listings.NewSource(logger, gateway, cfg.Remote.ListingsBaseURL)
	store := propertydb.NewClient(logger, sessionCache, cfg.Store.Endpoint, cfg.Store.Secret)

	rents := rentals.NewEstimator(logger, gateway, geocoder, store, cfg.Remote.RentCompsBaseURL)
	if cfg.Remote.DeepSearchAPIKey != "" {
		rents.SetDeepSearch(rentals.NewDeepSearch(logger, gateway, cfg.Remote.DeepSearchBaseURL, cfg.Remote.DeepSearchAPIKey))
	}

	// Commute estimation is optional; without a Maps key the pipeline skips it.
	var commutes enrichment.CommuteEstimator
	if cfg.Remote.MapsAPIKey != "" {
		mapsClient, err := maps.NewClient(maps.WithAPIKey(cfg.Remote.MapsAPIKey))
		if err != nil {
			logger.WithError(err).Fatal("Failed to create maps client")
		}
		commutes = commute.NewEstimator(logger, mapsClient)
	} else {
		logger.Warn("MAPS_API_KEY not set; commute estimation disabled")
	}

	orchestrator := enrichment.NewOrchestrator(logger, geocoder, source, rents, commutes, store)
	orchestrator.Start()
	defer orchestrator.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Content-Length", "X-Requested-With"},
	}))

	api.SetupRoutes(router, orchestrator, logger)

	logger.Infof("Starting server on %s", cfg.HTTPAddr)
	if err := router.Run(cfg.HTTPAddr); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
