package models

// CalendarEntry is one candidate return date quoted by the upstream
// price-calendar API for a given departure date.
type CalendarEntry struct {
	Date    string `json:"date"`
	Airline string `json:"airline"`
	Price   int64  `json:"price"`
}
