package vendorapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farewatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() CalendarRequest {
	return CalendarRequest{
		Origin:         "ICN",
		Destination:    "FUK",
		DepartureDate:  "2025-03-01",
		StayLength:     3,
		TransferFilter: models.TransferAny,
		International:  true,
	}
}

func TestFetchCalendar_Success(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/price-calendar", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"origin": "ICN",
			"destination": "FUK",
			"entries": [
				{"date": "2025-03-03", "airline": "XX", "price": 150000},
				{"date": "2025-03-04", "airline": "KE", "price": 180000.5}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	entries, err := c.FetchCalendar(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.CalendarEntry{Date: "2025-03-03", Airline: "XX", Price: 150000}, entries[0])
	// Fractional amounts are truncated
	assert.Equal(t, int64(180000), entries[1].Price)

	assert.Equal(t, "ICN", gotBody["origin"])
	assert.Equal(t, "FUK", gotBody["destination"])
	assert.Equal(t, "2025-03-01", gotBody["departureDate"])
	assert.Equal(t, float64(3), gotBody["period"])
}

func TestFetchCalendar_EmptyEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"origin":"ICN","destination":"FUK","entries":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	entries, err := c.FetchCalendar(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchCalendar_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.FetchCalendar(context.Background(), testRequest())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "rate limited")
}

func TestFetchCalendar_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.FetchCalendar(context.Background(), testRequest())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
}

func TestFetchCalendar_ShapeMismatchFailsFast(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing date", `{"entries":[{"airline":"XX","price":1000}]}`},
		{"invalid date", `{"entries":[{"date":"03/01/2025","price":1000}]}`},
		{"missing price", `{"entries":[{"date":"2025-03-03","airline":"XX"}]}`},
		{"string price", `{"entries":[{"date":"2025-03-03","price":"150000"}]}`},
		{"negative price", `{"entries":[{"date":"2025-03-03","price":-1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", time.Second)
			_, err := c.FetchCalendar(context.Background(), testRequest())

			var upstream *UpstreamError
			require.True(t, errors.As(err, &upstream), "expected UpstreamError, got %v", err)
		})
	}
}

func TestFetchCalendar_InputValidation(t *testing.T) {
	c := NewClient("http://localhost:1", "", time.Second)

	req := testRequest()
	req.StayLength = 0
	_, err := c.FetchCalendar(context.Background(), req)
	assert.Error(t, err)

	req = testRequest()
	req.TransferFilter = 2
	_, err = c.FetchCalendar(context.Background(), req)
	assert.Error(t, err)

	req = testRequest()
	req.DepartureDate = "bad"
	_, err = c.FetchCalendar(context.Background(), req)
	assert.Error(t, err)
}

func TestFetchCalendar_ContextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hold the request open until the test finishes so the client's
		// context deadline fires first. The handler must still return, or
		// srv.Close would wait on the connection forever.
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "", time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.FetchCalendar(ctx, testRequest())
	assert.Error(t, err)
}
