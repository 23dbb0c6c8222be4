package fares

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farewatch/internal/cache"
	"farewatch/internal/models"
	"farewatch/internal/obs"
	"farewatch/internal/services/scan"
	"farewatch/internal/services/vendorapi"

	"go.uber.org/zap"
)

// GridScanner runs one destination's day x stay grid without committing.
type GridScanner interface {
	ScanDestination(ctx context.Context, origin, destination string, p scan.Params) ([]models.FareSnapshot, scan.DestinationReport, error)
}

// LiveService answers interactive queries straight from the upstream
// calendar, trading latency for freshness. A TTL cache keyed by the full
// query parameters keeps repeated queries from re-hitting upstream within
// the interval.
type LiveService struct {
	fetcher   scan.Fetcher
	scanner   GridScanner
	summaries *cache.TTLCache[string, []models.DestinationSummary]
	series    *cache.TTLCache[string, []models.DailyPricePoint]
	ttl       time.Duration
	metrics   *obs.Metrics
	log       *zap.Logger
}

func NewLiveService(fetcher scan.Fetcher, scanner GridScanner, ttl time.Duration, metrics *obs.Metrics, log *zap.Logger) *LiveService {
	return &LiveService{
		fetcher:   fetcher,
		scanner:   scanner,
		summaries: cache.NewTTLCache[string, []models.DestinationSummary](),
		series:    cache.NewTTLCache[string, []models.DailyPricePoint](),
		ttl:       ttl,
		metrics:   metrics,
		log:       log.Named("live"),
	}
}

// BestPrices scans each destination's grid against the live calendar and
// folds it into best-price summaries. No baseline history is consulted on
// the live path, so the good-price badge stays false.
func (s *LiveService) BestPrices(ctx context.Context, origin string, destinations []models.Destination, p scan.Params) ([]models.DestinationSummary, error) {
	codes := make([]string, 0, len(destinations))
	for _, d := range destinations {
		codes = append(codes, d.Code)
	}
	key := fmt.Sprintf("best|%s|%s|%s|%d|%d|%d|%d",
		origin, strings.Join(codes, ","), p.StartDate, p.NumDays, p.MinStay, p.MaxStay, p.TransferFilter)

	return s.cachedSummaries(key, func() ([]models.DestinationSummary, error) {
		out := make([]models.DestinationSummary, 0, len(destinations))
		for _, dest := range destinations {
			rows, _, err := s.scanner.ScanDestination(ctx, origin, dest.Code, p)
			if err != nil {
				return nil, err
			}
			out = append(out, foldSummary(dest, rows))
		}
		return out, nil
	})
}

// cachedSummaries serves from the TTL cache, counting a miss only when the
// compute function really runs. Callers that join an in-flight compute
// count as hits; they trigger no upstream work.
func (s *LiveService) cachedSummaries(key string, compute func() ([]models.DestinationSummary, error)) ([]models.DestinationSummary, error) {
	computed := false
	v, err := s.summaries.GetOrCompute(key, s.ttl, func() ([]models.DestinationSummary, error) {
		computed = true
		return compute()
	})
	if s.metrics != nil {
		if computed {
			s.metrics.IncCacheMiss()
		} else {
			s.metrics.IncCacheHit()
		}
	}
	return v, err
}

// foldSummary picks the cheapest and most expensive priced cells of one
// live grid.
func foldSummary(dest models.Destination, rows []models.FareSnapshot) models.DestinationSummary {
	summary := models.DestinationSummary{
		Code:        dest.Code,
		DisplayName: dest.DisplayName,
		Region:      dest.Region,
	}
	for _, row := range rows {
		if row.MinPrice == nil {
			continue
		}
		price := *row.MinPrice
		if summary.Price == nil || price < *summary.Price {
			p := price
			stay := row.StayLength
			departure := row.DepartureDate
			ret := row.ReturnDate
			ts := row.CollectedAt
			summary.Price = &p
			summary.StayLength = &stay
			summary.DepartureDate = &departure
			summary.ReturnDate = &ret
			summary.Airline = row.MinAirline
			summary.CollectedAt = &ts
		}
		if summary.OriginalPrice == nil || price > *summary.OriginalPrice {
			op := price
			summary.OriginalPrice = &op
		}
	}
	return summary
}

// BuildSeriesLive reconstructs a per-day price series by calling the
// calendar directly for each departure date. Failed days become gaps, same
// as dates with no exact-match fare.
func (s *LiveService) BuildSeriesLive(ctx context.Context, origin, destination string, transferFilter, stayLength int, startDate string, numDays int) ([]models.DailyPricePoint, error) {
	key := fmt.Sprintf("series|%s|%s|%d|%d|%s|%d",
		origin, destination, transferFilter, stayLength, startDate, numDays)

	return s.series.GetOrCompute(key, s.ttl, func() ([]models.DailyPricePoint, error) {
		points := make([]models.DailyPricePoint, 0, numDays)
		for day := 0; day < numDays; day++ {
			departure, err := models.AddDays(startDate, day)
			if err != nil {
				return nil, err
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			entries, err := s.fetcher.FetchCalendar(ctx, vendorapi.CalendarRequest{
				Origin:         origin,
				Destination:    destination,
				DepartureDate:  departure,
				StayLength:     stayLength,
				TransferFilter: transferFilter,
				International:  true,
			})
			if err != nil {
				if s.metrics != nil {
					s.metrics.IncUpstreamError()
				}
				s.log.Debug("live series day failed",
					zap.String("destination", destination),
					zap.String("departure", departure),
					zap.Error(err))
				continue
			}
			if match := scan.SelectExact(entries, departure, stayLength); match != nil {
				points = append(points, models.DailyPricePoint{Date: departure, Price: match.Price})
			}
		}
		return points, nil
	})
}
