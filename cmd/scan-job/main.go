package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"farewatch/internal/config"
	"farewatch/internal/database"
	"farewatch/internal/models"
	"farewatch/internal/obs"
	"farewatch/internal/services/scan"
	"farewatch/internal/services/vendorapi"
	"farewatch/internal/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	origin   = flag.String("origin", "ICN", "origin airport code")
	region   = flag.String("region", "", "restrict scan to one region")
	codes    = flag.String("codes", "", "comma-separated destination codes")
	start    = flag.String("start", "", "first departure date (YYYY-MM-DD); default today+offset")
	interval = flag.Duration("interval", 0, "rescan interval; 0 runs one scan and exits")
)

func main() {
	flag.Parse()

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
	fetcher := vendorapi.NewClient(cfg.VendorBaseURL, cfg.VendorAPIKey, cfg.FetchTimeout)
	scanner := scan.NewScanner(fetcher, store.New(db, log), cfg.ScanNumWorkers, log, metrics)

	var codeList []string
	if *codes != "" {
		codeList = strings.Split(*codes, ",")
	}
	destinations := models.FilterDestinations(*region, codeList)
	if len(destinations) == 0 {
		log.Fatal("no destinations matched the scan filter",
			zap.String("region", *region), zap.String("codes", *codes))
	}

	runOnce := func() scan.JobReport {
		params := scan.Params{
			StartDate:      *start,
			NumDays:        cfg.ScanNumDays,
			MinStay:        cfg.ScanMinStay,
			MaxStay:        cfg.ScanMaxStay,
			TransferFilter: models.TransferAny,
			International:  true,
		}
		if params.StartDate == "" {
			params.StartDate = time.Now().AddDate(0, 0, cfg.ScanStartOffsetDays).Format(models.DateLayout)
		}
		return scanner.ScanAll(context.Background(), *origin, destinations, params)
	}

	if *interval <= 0 {
		report := runOnce()
		if report.Succeeded == 0 && report.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	runOnce()
	for {
		select {
		case <-sigChan:
			log.Info("shutting down")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
