package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"farewatch/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StoreError wraps a rejected read or write from the persistence layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// SnapshotStore owns the fare_snapshots table and its is_latest invariant:
// within one (origin, destination, transfer_filter) partition, at most one
// generation of rows is latest at any committed point.
type SnapshotStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, log: log.Named("store")}
}

// CommitGeneration flips the partition's current latest rows to false and
// inserts rows as the new latest generation. Both steps run in one
// transaction, so readers never observe two full generations; they may
// observe zero latest rows only if the transaction is rolled back and
// retried by the caller.
func (s *SnapshotStore) CommitGeneration(ctx context.Context, p models.Partition, rows []models.FareSnapshot) (int, error) {
	for i := range rows {
		rows[i].ID = 0
		rows[i].Origin = p.Origin
		rows[i].Destination = p.Destination
		rows[i].TransferFilter = p.TransferFilter
		rows[i].IsLatest = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FareSnapshot{}).
			Where("origin = ? AND destination = ? AND transfer_filter = ? AND is_latest = ?",
				p.Origin, p.Destination, p.TransferFilter, true).
			Update("is_latest", false).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return 0, wrap("commit generation", err)
	}

	s.log.Debug("generation committed",
		zap.String("origin", p.Origin),
		zap.String("destination", p.Destination),
		zap.Int("transfer_filter", p.TransferFilter),
		zap.Int("rows", len(rows)))
	return len(rows), nil
}

// latestRows loads the latest-generation rows for an origin and destination
// set, optionally restricted to one stay length.
func (s *SnapshotStore) latestRows(ctx context.Context, origin string, destinations []string, transferFilter int, stayLength *int) ([]models.FareSnapshot, error) {
	q := s.db.WithContext(ctx).
		Where("origin = ? AND transfer_filter = ? AND is_latest = ?", origin, transferFilter, true).
		Where("destination IN ?", destinations)
	if stayLength != nil {
		q = q.Where("stay_length = ?", *stayLength)
	}

	var rows []models.FareSnapshot
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrap("load latest rows", err)
	}
	return rows, nil
}

// LatestExtrema returns, per destination, the minimum and maximum priced
// latest row. Destinations with no priced latest rows are absent from the
// result map.
func (s *SnapshotStore) LatestExtrema(ctx context.Context, origin string, destinations []string, transferFilter int, stayLength *int) (map[string]models.ExtremaRow, error) {
	rows, err := s.latestRows(ctx, origin, destinations, transferFilter, stayLength)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.ExtremaRow)
	for _, row := range rows {
		if row.MinPrice == nil {
			continue
		}
		price := *row.MinPrice

		extrema, seen := out[row.Destination]
		if !seen {
			extrema = models.ExtremaRow{
				Destination: row.Destination,
				MinPrice:    price,
				MaxPrice:    price,
			}
		}
		if !seen || price < extrema.MinPrice {
			extrema.MinPrice = price
			extrema.DepartureDate = row.DepartureDate
			extrema.ReturnDate = row.ReturnDate
			extrema.StayLength = row.StayLength
			if row.MinAirline != nil {
				extrema.Airline = *row.MinAirline
			} else {
				extrema.Airline = ""
			}
			extrema.CollectedAt = row.CollectedAt
		}
		if price > extrema.MaxPrice {
			extrema.MaxPrice = price
		}
		out[row.Destination] = extrema
	}
	return out, nil
}

// LatestCollectedAt returns the most recent collection time among latest
// rows per destination, priced or not. Extrema views can lag a scan; this
// is the authoritative freshness signal.
func (s *SnapshotStore) LatestCollectedAt(ctx context.Context, origin string, destinations []string, transferFilter int) (map[string]time.Time, error) {
	rows, err := s.latestRows(ctx, origin, destinations, transferFilter, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]time.Time)
	for _, row := range rows {
		if t, ok := out[row.Destination]; !ok || row.CollectedAt.After(t) {
			out[row.Destination] = row.CollectedAt
		}
	}
	return out, nil
}

// SeriesForWindow returns departure date -> price for latest priced rows of
// one stay length whose (departure, return) pair exactly satisfies
// return = departure + stay - 1, restricted to departures within the
// window. Only the most-recently-collected row per departure date counts.
func (s *SnapshotStore) SeriesForWindow(ctx context.Context, origin, destination string, transferFilter, stayLength int, startDate string, numDays int) (map[string]int64, error) {
	if numDays < 1 {
		return map[string]int64{}, nil
	}
	endDate, err := models.AddDays(startDate, numDays-1)
	if err != nil {
		return nil, wrap("series window", err)
	}

	var rows []models.FareSnapshot
	err = s.db.WithContext(ctx).
		Where("origin = ? AND destination = ? AND transfer_filter = ? AND is_latest = ?",
			origin, destination, transferFilter, true).
		Where("stay_length = ? AND min_price IS NOT NULL", stayLength).
		Where("departure_date >= ? AND departure_date <= ?", startDate, endDate).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("load series rows", err)
	}

	prices := make(map[string]int64)
	collected := make(map[string]time.Time)
	for _, row := range rows {
		expected, err := models.ReturnDateFor(row.DepartureDate, stayLength)
		if err != nil || row.ReturnDate != expected {
			continue
		}
		if t, ok := collected[row.DepartureDate]; ok && !row.CollectedAt.After(t) {
			continue
		}
		prices[row.DepartureDate] = *row.MinPrice
		collected[row.DepartureDate] = row.CollectedAt
	}
	return prices, nil
}

// baselineRow is the narrow projection the percentile pass needs.
type baselineRow struct {
	Destination string
	MinPrice    int64
}

// BaselineStats computes per-destination percentile baselines over the full
// snapshot history (all generations), feeding the good-price badge.
func (s *SnapshotStore) BaselineStats(ctx context.Context, origin string, destinations []string, transferFilter int) (map[string]models.BaselineStats, error) {
	var rows []baselineRow
	err := s.db.WithContext(ctx).
		Model(&models.FareSnapshot{}).
		Select("destination, min_price").
		Where("origin = ? AND transfer_filter = ? AND min_price IS NOT NULL", origin, transferFilter).
		Where("destination IN ?", destinations).
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("load baseline rows", err)
	}

	samples := make(map[string][]int64)
	for _, row := range rows {
		samples[row.Destination] = append(samples[row.Destination], row.MinPrice)
	}

	out := make(map[string]models.BaselineStats, len(samples))
	for dest, prices := range samples {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
		out[dest] = models.BaselineStats{
			SampleCount: len(prices),
			P50:         percentile(prices, 0.50),
			P25:         percentile(prices, 0.25),
			P10:         percentile(prices, 0.10),
			P05:         percentile(prices, 0.05),
			P01:         percentile(prices, 0.01),
		}
	}
	return out, nil
}

// percentile returns the nearest-rank q-th percentile of an ascending
// sorted slice.
func percentile(sorted []int64, q float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
