package scan

import (
	"testing"

	"farewatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectExact_PicksOnlyTheExactReturnDate(t *testing.T) {
	entries := []models.CalendarEntry{
		{Date: "2025-03-02", Airline: "KE", Price: 210000},
		{Date: "2025-03-03", Airline: "XX", Price: 150000},
		{Date: "2025-03-04", Airline: "OZ", Price: 120000},
	}

	// Stay of 3 departing 2025-03-01 returns 2025-03-03
	match := SelectExact(entries, "2025-03-01", 3)
	require.NotNil(t, match)
	assert.Equal(t, "2025-03-03", match.Date)
	assert.Equal(t, "XX", match.Airline)
	assert.Equal(t, int64(150000), match.Price)
}

func TestSelectExact_NeverReturnsADifferentDate(t *testing.T) {
	entries := []models.CalendarEntry{
		{Date: "2025-03-02", Price: 100000},
		{Date: "2025-03-05", Price: 90000},
	}

	for stay := 1; stay <= 10; stay++ {
		match := SelectExact(entries, "2025-03-01", stay)
		if match == nil {
			continue
		}
		expected, err := models.ReturnDateFor("2025-03-01", stay)
		require.NoError(t, err)
		assert.Equal(t, expected, match.Date)
	}
}

func TestSelectExact_NilWhenNoMatch(t *testing.T) {
	entries := []models.CalendarEntry{
		{Date: "2025-03-10", Price: 99000},
	}
	assert.Nil(t, SelectExact(entries, "2025-03-01", 3))
}

func TestSelectExact_NilOnEmptyEntries(t *testing.T) {
	assert.Nil(t, SelectExact(nil, "2025-03-01", 3))
}

func TestSelectExact_SingleDayStayReturnsDepartureDate(t *testing.T) {
	entries := []models.CalendarEntry{
		{Date: "2025-03-01", Airline: "7C", Price: 80000},
	}
	match := SelectExact(entries, "2025-03-01", 1)
	require.NotNil(t, match)
	assert.Equal(t, "2025-03-01", match.Date)
}

func TestSelectExact_FirstMatchWins(t *testing.T) {
	entries := []models.CalendarEntry{
		{Date: "2025-03-03", Airline: "KE", Price: 200000},
		{Date: "2025-03-03", Airline: "XX", Price: 150000},
	}
	match := SelectExact(entries, "2025-03-01", 3)
	require.NotNil(t, match)
	assert.Equal(t, "KE", match.Airline)
}

func TestSelectExact_MonthBoundary(t *testing.T) {
	entries := []models.CalendarEntry{
		{Date: "2025-03-02", Airline: "KE", Price: 175000},
	}
	match := SelectExact(entries, "2025-02-27", 4)
	require.NotNil(t, match)
	assert.Equal(t, "2025-03-02", match.Date)
}

func TestSelectExact_InvalidInputs(t *testing.T) {
	entries := []models.CalendarEntry{{Date: "2025-03-03", Price: 1}}
	assert.Nil(t, SelectExact(entries, "2025-03-01", 0))
	assert.Nil(t, SelectExact(entries, "not-a-date", 3))
}
