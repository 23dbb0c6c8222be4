package scan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"farewatch/internal/models"
	"farewatch/internal/services/vendorapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubFetcher returns canned calendars per (destination, departure) and
// fails cells listed in failures.
type stubFetcher struct {
	mu       sync.Mutex
	entries  map[string][]models.CalendarEntry
	failures map[string]bool
	calls    int
}

func fetchKey(destination, departure string) string { return destination + "|" + departure }

func (f *stubFetcher) FetchCalendar(_ context.Context, req vendorapi.CalendarRequest) ([]models.CalendarEntry, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	key := fetchKey(req.Destination, req.DepartureDate)
	if f.failures[key] {
		return nil, &vendorapi.UpstreamError{StatusCode: 500, Body: "boom"}
	}
	return f.entries[key], nil
}

type stubCommitter struct {
	mu      sync.Mutex
	commits map[string][]models.FareSnapshot
	err     error
}

func (c *stubCommitter) CommitGeneration(_ context.Context, p models.Partition, rows []models.FareSnapshot) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commits == nil {
		c.commits = make(map[string][]models.FareSnapshot)
	}
	c.commits[p.Destination] = rows
	return len(rows), nil
}

func newTestScanner(f Fetcher, c Committer) *Scanner {
	return NewScanner(f, c, 4, zap.NewNop(), nil)
}

func TestScanDestination_EmitsOneRowPerCell(t *testing.T) {
	fetcher := &stubFetcher{}
	s := newTestScanner(fetcher, &stubCommitter{})

	rows, report, err := s.ScanDestination(context.Background(), "ICN", "KIX", Params{
		StartDate:      "2025-03-01",
		NumDays:        5,
		MinStay:        2,
		MaxStay:        4,
		TransferFilter: models.TransferAny,
	})
	require.NoError(t, err)

	// 5 days x 3 stay lengths, every cell present even with no fares
	assert.Len(t, rows, 15)
	assert.Equal(t, 15, report.EmptyCells)
	assert.Equal(t, 0, report.PricedCells)
	for _, row := range rows {
		assert.Nil(t, row.MinPrice)
		assert.Nil(t, row.MinAirline)
		assert.True(t, row.IsLatest)
		expected, err := models.ReturnDateFor(row.DepartureDate, row.StayLength)
		require.NoError(t, err)
		assert.Equal(t, expected, row.ReturnDate)
	}
}

func TestScanDestination_RowCountUnaffectedByFailures(t *testing.T) {
	fetcher := &stubFetcher{
		failures: map[string]bool{
			fetchKey("FUK", "2025-03-01"): true,
			fetchKey("FUK", "2025-03-03"): true,
		},
	}
	s := newTestScanner(fetcher, &stubCommitter{})

	rows, report, err := s.ScanDestination(context.Background(), "ICN", "FUK", Params{
		StartDate: "2025-03-01", NumDays: 4, MinStay: 3, MaxStay: 3, TransferFilter: models.TransferAny,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, 2, report.FailedCells)
	assert.Equal(t, 2, report.EmptyCells)
}

// The exact scenario from the scan contract: one priced cell, one scanned
// cell with no exact-match fare.
func TestScanDestination_ExactMatchScenario(t *testing.T) {
	fetcher := &stubFetcher{
		entries: map[string][]models.CalendarEntry{
			fetchKey("FUK", "2025-03-01"): {
				{Date: "2025-03-02", Airline: "KE", Price: 210000},
				{Date: "2025-03-03", Airline: "XX", Price: 150000},
			},
			fetchKey("FUK", "2025-03-02"): {
				{Date: "2025-03-06", Airline: "OZ", Price: 130000},
			},
		},
	}
	s := newTestScanner(fetcher, &stubCommitter{})

	rows, report, err := s.ScanDestination(context.Background(), "ICN", "FUK", Params{
		StartDate: "2025-03-01", NumDays: 2, MinStay: 3, MaxStay: 3, TransferFilter: models.TransferAny,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2025-03-01", rows[0].DepartureDate)
	assert.Equal(t, "2025-03-03", rows[0].ReturnDate)
	assert.Equal(t, 3, rows[0].StayLength)
	require.NotNil(t, rows[0].MinPrice)
	assert.Equal(t, int64(150000), *rows[0].MinPrice)
	require.NotNil(t, rows[0].MinAirline)
	assert.Equal(t, "XX", *rows[0].MinAirline)

	assert.Equal(t, "2025-03-02", rows[1].DepartureDate)
	assert.Equal(t, "2025-03-04", rows[1].ReturnDate)
	assert.Nil(t, rows[1].MinPrice)
	assert.Nil(t, rows[1].MinAirline)

	assert.Equal(t, 1, report.PricedCells)
	assert.Equal(t, 1, report.EmptyCells)
}

func TestScanDestination_InvalidParams(t *testing.T) {
	s := newTestScanner(&stubFetcher{}, &stubCommitter{})

	_, _, err := s.ScanDestination(context.Background(), "ICN", "FUK", Params{
		StartDate: "bad", NumDays: 1, MinStay: 1, MaxStay: 1,
	})
	assert.Error(t, err)

	_, _, err = s.ScanDestination(context.Background(), "ICN", "FUK", Params{
		StartDate: "2025-03-01", NumDays: 1, MinStay: 3, MaxStay: 2,
	})
	assert.Error(t, err)
}

func TestScanAll_CommitsEachDestination(t *testing.T) {
	fetcher := &stubFetcher{
		entries: map[string][]models.CalendarEntry{
			fetchKey("FUK", "2025-03-01"): {{Date: "2025-03-03", Airline: "XX", Price: 150000}},
		},
	}
	committer := &stubCommitter{}
	s := newTestScanner(fetcher, committer)

	destinations := []models.Destination{
		{Code: "FUK"}, {Code: "KIX"}, {Code: "NRT"},
	}
	report := s.ScanAll(context.Background(), "ICN", destinations, Params{
		StartDate: "2025-03-01", NumDays: 2, MinStay: 3, MaxStay: 3, TransferFilter: models.TransferAny,
	})

	assert.NotEmpty(t, report.JobID)
	assert.Equal(t, "ICN", report.Origin)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Destinations, 3)
	for _, dr := range report.Destinations {
		assert.Equal(t, 2, dr.RowsWritten)
		assert.Empty(t, dr.Error)
	}
	assert.Len(t, committer.commits, 3)
}

func TestScanAll_CommitFailureCountsDestinationAsFailed(t *testing.T) {
	committer := &stubCommitter{err: errors.New("connection lost")}
	s := newTestScanner(&stubFetcher{}, committer)

	report := s.ScanAll(context.Background(), "ICN", []models.Destination{{Code: "FUK"}}, Params{
		StartDate: "2025-03-01", NumDays: 1, MinStay: 2, MaxStay: 2, TransferFilter: models.TransferAny,
	})

	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Destinations, 1)
	assert.Contains(t, report.Destinations[0].Error, "connection lost")
}

func TestScanAll_CancelledContextKeepsAccountingTotal(t *testing.T) {
	committer := &stubCommitter{}
	s := NewScanner(&stubFetcher{}, committer, 1, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	destinations := []models.Destination{
		{Code: "FUK"}, {Code: "KIX"}, {Code: "NRT"}, {Code: "CTS"},
	}
	report := s.ScanAll(ctx, "ICN", destinations, Params{
		StartDate: "2025-03-01", NumDays: 2, MinStay: 3, MaxStay: 3, TransferFilter: models.TransferAny,
	})

	// Every destination is accounted for, dispatched or not
	require.Len(t, report.Destinations, len(destinations))
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, len(destinations), report.Failed)
	for _, dr := range report.Destinations {
		assert.NotEmpty(t, dr.Error)
	}
	assert.Empty(t, committer.commits)
}

func TestScanAll_BoundedWorkers(t *testing.T) {
	fetcher := &stubFetcher{}
	committer := &stubCommitter{}
	s := NewScanner(fetcher, committer, 2, zap.NewNop(), nil)

	var destinations []models.Destination
	for _, d := range models.Destinations {
		destinations = append(destinations, d)
	}
	report := s.ScanAll(context.Background(), "ICN", destinations, Params{
		StartDate: "2025-03-01", NumDays: 1, MinStay: 2, MaxStay: 2, TransferFilter: models.TransferAny,
	})

	assert.Equal(t, len(destinations), report.Succeeded)
	assert.Len(t, committer.commits, len(destinations))
}
