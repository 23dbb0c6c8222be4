package fares

import (
	"time"

	"farewatch/internal/models"
)

// Good-price badge thresholds. The badge directly affects what the UI
// calls a deal: it lights up only when a destination has a meaningful
// history and the current fare sits at or under 70% of its 10th
// percentile. Overridable through config.
const (
	DefaultGoodPriceMinSamples = 50
	DefaultGoodPriceRatio      = 0.70
)

// Resolver folds store extrema, freshness and baselines into the
// best-price-per-destination rows served to the front-end.
type Resolver struct {
	minSamples int
	ratio      float64
}

func NewResolver(minSamples int, ratio float64) *Resolver {
	if minSamples <= 0 {
		minSamples = DefaultGoodPriceMinSamples
	}
	if ratio <= 0 {
		ratio = DefaultGoodPriceRatio
	}
	return &Resolver{minSamples: minSamples, ratio: ratio}
}

// Resolve produces one summary per destination, in catalog order. A
// destination without extrema keeps null price fields and a false badge;
// it is never silently dropped.
func (r *Resolver) Resolve(
	destinations []models.Destination,
	extrema map[string]models.ExtremaRow,
	collectedAt map[string]time.Time,
	baselines map[string]models.BaselineStats,
) []models.DestinationSummary {
	out := make([]models.DestinationSummary, 0, len(destinations))
	for _, dest := range destinations {
		summary := models.DestinationSummary{
			Code:        dest.Code,
			DisplayName: dest.DisplayName,
			Region:      dest.Region,
		}

		row, ok := extrema[dest.Code]
		if ok {
			price := row.MinPrice
			original := row.MaxPrice
			stay := row.StayLength
			departure := row.DepartureDate
			ret := row.ReturnDate
			summary.Price = &price
			summary.OriginalPrice = &original
			summary.StayLength = &stay
			summary.DepartureDate = &departure
			summary.ReturnDate = &ret
			if row.Airline != "" {
				airline := row.Airline
				summary.Airline = &airline
			}

			// Prefer the store's freshness signal; extrema may come from a
			// view that lags the last scan.
			ts := row.CollectedAt
			if latest, ok := collectedAt[dest.Code]; ok && latest.After(ts) {
				ts = latest
			}
			if !ts.IsZero() {
				summary.CollectedAt = &ts
			}

			summary.GoodPriceBadge = r.isGoodPrice(price, baselines[dest.Code])
		} else if latest, found := collectedAt[dest.Code]; found && !latest.IsZero() {
			ts := latest
			summary.CollectedAt = &ts
		}

		out = append(out, summary)
	}
	return out
}

func (r *Resolver) isGoodPrice(price int64, baseline models.BaselineStats) bool {
	if baseline.SampleCount < r.minSamples {
		return false
	}
	if baseline.P10 <= 0 {
		return false
	}
	return float64(price) <= float64(baseline.P10)*r.ratio
}
