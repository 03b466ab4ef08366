package main

import (
	"context"
	"os"
	"path/filepath"

	"homescout/server/config"
	"homescout/server/internal/propertydb"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
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

	dbPath := cfg.PropertyDB.SQLitePath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", dbPath)

	storage, err := propertydb.NewStorage(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}

	hot := propertydb.NewHotCache(cfg.PropertyDB.RedisAddr, cfg.PropertyDB.RedisPassword, cfg.PropertyDB.RedisDB)

	service := propertydb.NewService(logger, storage, hot, cfg.Store.Secret)
	service.Warm(context.Background())

	router := gin.New()
	router.Use(gin.Recovery())
	service.SetupRoutes(router)

	logger.Infof("Starting property store on %s", cfg.PropertyDB.Addr)
	if err := router.Run(cfg.PropertyDB.Addr); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
