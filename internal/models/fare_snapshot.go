package models

import "time"

// Transfer filter values, matching the upstream calendar API contract.
const (
	TransferAny     = -1
	TransferNonstop = 0
	TransferOneStop = 1
)

// FareSnapshot stores one scanned (departure, stay-length) cell for a route.
// Rows are append-only history; is_latest marks the current generation per
// (origin, destination, transfer_filter) partition.
type FareSnapshot struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Origin        string `json:"origin" gorm:"size:8;not null;index:idx_partition_latest,priority:1"`
	Destination   string `json:"destination" gorm:"size:8;not null;index:idx_partition_latest,priority:2"`
	DepartureDate string `json:"departure_date" gorm:"size:10;not null;index"`
	// Always departure_date + (stay_length - 1) days
	ReturnDate string `json:"return_date" gorm:"size:10;not null"`
	StayLength int    `json:"stay_length" gorm:"not null;index"`
	// Null when the cell was scanned but upstream had no exact-match fare
	MinPrice       *int64    `json:"min_price"`
	MinAirline     *string   `json:"min_airline" gorm:"size:8"`
	TransferFilter int       `json:"transfer_filter" gorm:"not null;index:idx_partition_latest,priority:3"`
	CollectedAt    time.Time `json:"collected_at" gorm:"index"`
	IsLatest       bool      `json:"is_latest" gorm:"index:idx_partition_latest,priority:4"`
}

// Partition identifies one is_latest generation group.
type Partition struct {
	Origin         string
	Destination    string
	TransferFilter int
}
