package scan

import "farewatch/internal/models"

// SelectExact picks the calendar entry whose return date equals
// departure + (stayLength - 1) days. The upstream calendar answers with a
// window of candidate return dates; only the exact match counts, since an
// approximate date would show a price the user cannot actually book.
// Returns nil when no entry matches, which is common with sparse calendars.
func SelectExact(entries []models.CalendarEntry, departureDate string, stayLength int) *models.CalendarEntry {
	if stayLength < 1 {
		return nil
	}
	expectedReturn, err := models.ReturnDateFor(departureDate, stayLength)
	if err != nil {
		return nil
	}
	for i := range entries {
		if entries[i].Date == expectedReturn {
			return &entries[i]
		}
	}
	return nil
}
