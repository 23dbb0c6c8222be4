package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"farewatch/internal/api"
	"farewatch/internal/config"
	"farewatch/internal/database"
	"farewatch/internal/obs"
	"farewatch/internal/services/fares"
	"farewatch/internal/services/scan"
	"farewatch/internal/services/vendorapi"
	"farewatch/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	metrics := obs.NewMetrics(prometheus.NewRegistry())
	snapshotStore := store.New(db, log)
	fetcher := vendorapi.NewClient(cfg.VendorBaseURL, cfg.VendorAPIKey, cfg.FetchTimeout)
	scanner := scan.NewScanner(fetcher, snapshotStore, cfg.ScanNumWorkers, log, metrics)
	resolver := fares.NewResolver(cfg.GoodPriceMinSamples, cfg.GoodPriceRatio)
	seriesBuilder := fares.NewSeriesBuilder(snapshotStore)
	liveService := fares.NewLiveService(fetcher, scanner, cfg.LiveCacheTTL, metrics, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Request latency metrics
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequestDuration(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds())
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, snapshotStore, resolver, seriesBuilder, liveService, scanner, cfg, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
