package vendorapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farewatch/internal/models"

	"github.com/go-resty/resty/v2"
)

// UpstreamError is a non-2xx or malformed response from the calendar API
// for a single cell. Callers recover locally (skip the cell), never abort a
// batch over it.
type UpstreamError struct {
	StatusCode int
	Body       string
	Reason     string
}

func (e *UpstreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("upstream calendar error: %s (status %d)", e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("upstream calendar error: status %d: %s", e.StatusCode, e.Body)
}

// CalendarRequest identifies one (route, departure, stay-length) cell.
type CalendarRequest struct {
	Origin         string
	Destination    string
	DepartureDate  string
	StayLength     int
	TransferFilter int
	International  bool
	Airlines       []string
}

type calendarResponse struct {
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`
	Entries     []calendarWireItem `json:"entries"`
}

type calendarWireItem struct {
	Date    *string          `json:"date"`
	Airline string           `json:"airline"`
	Price   *json.RawMessage `json:"price"`
}

// Client calls the vendor price-calendar endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	http := resty.New()
	http.SetBaseURL(baseURL)
	http.SetTimeout(timeout)

	return &Client{
		http:   http,
		apiKey: apiKey,
	}
}

// FetchCalendar queries the price calendar for one cell and returns the raw
// entry list, which may be empty. Non-2xx responses and shape mismatches
// fail with *UpstreamError. No retries here; retry policy belongs to the
// caller.
func (c *Client) FetchCalendar(ctx context.Context, req CalendarRequest) ([]models.CalendarEntry, error) {
	if req.StayLength < 1 {
		return nil, fmt.Errorf("stay length must be >= 1, got %d", req.StayLength)
	}
	if req.TransferFilter < models.TransferAny || req.TransferFilter > models.TransferOneStop {
		return nil, fmt.Errorf("invalid transfer filter %d", req.TransferFilter)
	}
	if _, err := models.ParseDate(req.DepartureDate); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"origin":        req.Origin,
		"destination":   req.Destination,
		"departureDate": req.DepartureDate,
		"period":        req.StayLength,
		"transfer":      req.TransferFilter,
		"international": req.International,
	}
	if len(req.Airlines) > 0 {
		body["airlines"] = req.Airlines
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", c.apiKey).
		SetBody(body).
		Post("/price-calendar")
	if err != nil {
		return nil, &UpstreamError{Reason: err.Error()}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var parsed calendarResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode(), Reason: "malformed response body"}
	}

	entries := make([]models.CalendarEntry, 0, len(parsed.Entries))
	for _, item := range parsed.Entries {
		entry, err := item.toEntry()
		if err != nil {
			return nil, &UpstreamError{StatusCode: resp.StatusCode(), Reason: err.Error()}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// toEntry converts one wire item, failing fast on missing or mistyped
// fields instead of letting zero values flow into price arithmetic.
func (i calendarWireItem) toEntry() (models.CalendarEntry, error) {
	if i.Date == nil || *i.Date == "" {
		return models.CalendarEntry{}, errors.New("calendar entry missing date")
	}
	if _, err := models.ParseDate(*i.Date); err != nil {
		return models.CalendarEntry{}, fmt.Errorf("calendar entry has invalid date %q", *i.Date)
	}
	if i.Price == nil {
		return models.CalendarEntry{}, errors.New("calendar entry missing price")
	}
	var price int64
	if err := json.Unmarshal(*i.Price, &price); err != nil {
		// Some routes quote fractional amounts; accept and truncate.
		var f float64
		if err := json.Unmarshal(*i.Price, &f); err != nil {
			return models.CalendarEntry{}, fmt.Errorf("calendar entry has non-numeric price %s", string(*i.Price))
		}
		price = int64(f)
	}
	if price < 0 {
		return models.CalendarEntry{}, fmt.Errorf("calendar entry has negative price %d", price)
	}

	return models.CalendarEntry{
		Date:    *i.Date,
		Airline: i.Airline,
		Price:   price,
	}, nil
}
