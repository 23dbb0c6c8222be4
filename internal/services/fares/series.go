package fares

import (
	"context"

	"farewatch/internal/models"
)

// SeriesStore is the read-path dependency of the series builder.
type SeriesStore interface {
	SeriesForWindow(ctx context.Context, origin, destination string, transferFilter, stayLength int, startDate string, numDays int) (map[string]int64, error)
}

// SeriesBuilder reconstructs the per-day price series for one destination
// and stay length from the latest snapshot generation.
type SeriesBuilder struct {
	store SeriesStore
}

func NewSeriesBuilder(store SeriesStore) *SeriesBuilder {
	return &SeriesBuilder{store: store}
}

// BuildSeries returns one point per departure date that has a resolved
// price, ascending by date. The series is sparse; the UI gap-fills for
// charting.
func (b *SeriesBuilder) BuildSeries(ctx context.Context, origin, destination string, transferFilter, stayLength int, startDate string, numDays int) ([]models.DailyPricePoint, error) {
	prices, err := b.store.SeriesForWindow(ctx, origin, destination, transferFilter, stayLength, startDate, numDays)
	if err != nil {
		return nil, err
	}
	return assembleSeries(startDate, numDays, prices)
}

// assembleSeries walks the candidate departure dates in window order and
// emits the dates that resolved a price.
func assembleSeries(startDate string, numDays int, prices map[string]int64) ([]models.DailyPricePoint, error) {
	points := make([]models.DailyPricePoint, 0, len(prices))
	for day := 0; day < numDays; day++ {
		date, err := models.AddDays(startDate, day)
		if err != nil {
			return nil, err
		}
		if price, ok := prices[date]; ok {
			points = append(points, models.DailyPricePoint{Date: date, Price: price})
		}
	}
	return points, nil
}
