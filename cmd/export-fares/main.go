package main

import (
	"context"
	"flag"
	"fmt"

	"farewatch/internal/config"
	"farewatch/internal/database"
	"farewatch/internal/models"

	"github.com/joho/godotenv"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	origin   = flag.String("origin", "ICN", "origin airport code")
	transfer = flag.Int("transfer", models.TransferAny, "transfer filter (-1 any, 0 nonstop, 1 one-stop)")
	outFile  = flag.String("out", "fares.xlsx", "output spreadsheet path")
)

// export-fares writes the latest snapshot generation for every catalog
// destination to a spreadsheet, one sheet per destination.
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
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	f := excelize.NewFile()
	defer f.Close()

	ctx := context.Background()
	sheets := 0
	for _, dest := range models.Destinations {
		var rows []models.FareSnapshot
		err := db.WithContext(ctx).
			Where("origin = ? AND destination = ? AND transfer_filter = ? AND is_latest = ?",
				*origin, dest.Code, *transfer, true).
			Order("departure_date, stay_length").
			Find(&rows).Error
		if err != nil {
			log.Fatal("failed to load snapshots", zap.String("destination", dest.Code), zap.Error(err))
		}
		if len(rows) == 0 {
			continue
		}

		sheet := dest.Code
		if _, err := f.NewSheet(sheet); err != nil {
			log.Fatal("failed to create sheet", zap.String("sheet", sheet), zap.Error(err))
		}
		headers := []string{"departure", "return", "stay", "price", "airline", "collected_at"}
		for col, header := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(sheet, cell, header)
		}
		for i, row := range rows {
			values := []interface{}{
				row.DepartureDate,
				row.ReturnDate,
				row.StayLength,
				nil,
				"",
				row.CollectedAt.Format("2006-01-02 15:04:05"),
			}
			if row.MinPrice != nil {
				values[3] = *row.MinPrice
			}
			if row.MinAirline != nil {
				values[4] = *row.MinAirline
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
				f.SetCellValue(sheet, cell, v)
			}
		}
		sheets++
	}

	if sheets == 0 {
		log.Warn("no latest snapshots found, nothing to export")
		return
	}

	// Drop the default empty sheet
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(*outFile); err != nil {
		log.Fatal("failed to save spreadsheet", zap.Error(err))
	}
	fmt.Printf("exported %d destinations to %s\n", sheets, *outFile)
}
