package models

import "time"

// DailyPricePoint is one point of the price-over-time chart. Derived per
// request, never persisted.
type DailyPricePoint struct {
	Date  string `json:"date"`
	Price int64  `json:"price"`
}

// ExtremaRow carries the minimum and maximum latest fare for one
// destination, with the dates/airline of the minimum-price row.
type ExtremaRow struct {
	Destination   string    `json:"destination"`
	MinPrice      int64     `json:"min_price"`
	MaxPrice      int64     `json:"max_price"`
	DepartureDate string    `json:"departure_date"`
	ReturnDate    string    `json:"return_date"`
	StayLength    int       `json:"stay_length"`
	Airline       string    `json:"airline"`
	CollectedAt   time.Time `json:"collected_at"`
}

// BaselineStats summarizes a destination's historical min_price
// distribution. Only the sample count and p10 feed the good-price badge;
// the remaining percentiles are served for diagnostics.
type BaselineStats struct {
	SampleCount int   `json:"sample_count"`
	P50         int64 `json:"p50"`
	P25         int64 `json:"p25"`
	P10         int64 `json:"p10"`
	P05         int64 `json:"p05"`
	P01         int64 `json:"p01"`
}

// DestinationSummary is the best-price-per-destination row served to the
// front-end. Price fields are null when the destination has no latest
// snapshot with a fare.
type DestinationSummary struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Region      string `json:"region"`
	// Lowest latest fare; null when nothing was found
	Price *int64 `json:"price"`
	// Highest latest fare, shown struck through as the "original" price
	OriginalPrice  *int64     `json:"original_price"`
	StayLength     *int       `json:"stay_length"`
	DepartureDate  *string    `json:"departure_date"`
	ReturnDate     *string    `json:"return_date"`
	Airline        *string    `json:"airline"`
	CollectedAt    *time.Time `json:"collected_at"`
	GoodPriceBadge bool       `json:"good_price_badge"`
}
