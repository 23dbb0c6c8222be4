package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"farewatch/internal/config"
	"farewatch/internal/models"
	"farewatch/internal/services/fares"
	"farewatch/internal/services/scan"
	"farewatch/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// APIHandler serves the fare read surface and the scan trigger.
type APIHandler struct {
	store    *store.SnapshotStore
	resolver *fares.Resolver
	series   *fares.SeriesBuilder
	live     *fares.LiveService
	scanner  *scan.Scanner
	cfg      *config.Config
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func SetupRoutes(r *gin.RouterGroup, st *store.SnapshotStore, resolver *fares.Resolver, series *fares.SeriesBuilder, live *fares.LiveService, scanner *scan.Scanner, cfg *config.Config, log *zap.Logger) *APIHandler {
	handler := &APIHandler{
		store:    st,
		resolver: resolver,
		series:   series,
		live:     live,
		scanner:  scanner,
		cfg:      cfg,
		log:      log.Named("api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	faresGroup := r.Group("/fares")
	{
		faresGroup.GET("/best", handler.GetBestPrices)
		faresGroup.GET("/best/live", handler.GetBestPricesLive)
		faresGroup.GET("/series", handler.GetSeries)
		faresGroup.GET("/series/live", handler.GetSeriesLive)
	}

	scanGroup := r.Group("/scan")
	{
		scanGroup.POST("/trigger", handler.TriggerScan)
	}

	r.GET("/destinations", handler.ListDestinations)
	r.GET("/ws/live", handler.LiveFeed)

	return handler
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (h *APIHandler) serviceError(c *gin.Context, err error) {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		h.log.Error("store failure", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data unavailable"})
		return
	}
	h.log.Error("request failed", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
}

func parseTransferFilter(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("transfer", strconv.Itoa(models.TransferAny))
	n, err := strconv.Atoi(raw)
	if err != nil || n < models.TransferAny || n > models.TransferOneStop {
		badRequest(c, "transfer must be -1, 0 or 1")
		return 0, false
	}
	return n, true
}

func parseCodes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// GetBestPrices serves the store-backed best-price-per-destination query.
func (h *APIHandler) GetBestPrices(c *gin.Context) {
	origin := strings.ToUpper(c.DefaultQuery("origin", "ICN"))
	transferFilter, ok := parseTransferFilter(c)
	if !ok {
		return
	}

	var stayLength *int
	if raw := c.Query("stay"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "stay must be a positive integer")
			return
		}
		stayLength = &n
	}

	destinations := models.FilterDestinations(c.Query("region"), parseCodes(c.Query("codes")))
	if len(destinations) == 0 {
		badRequest(c, "no destinations matched the region/codes filter")
		return
	}
	codes := make([]string, 0, len(destinations))
	for _, d := range destinations {
		codes = append(codes, d.Code)
	}

	ctx := c.Request.Context()
	extrema, err := h.store.LatestExtrema(ctx, origin, codes, transferFilter, stayLength)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	collectedAt, err := h.store.LatestCollectedAt(ctx, origin, codes, transferFilter)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	baselines, err := h.store.BaselineStats(ctx, origin, codes, transferFilter)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	summaries := h.resolver.Resolve(destinations, extrema, collectedAt, baselines)
	c.JSON(http.StatusOK, gin.H{"origin": origin, "items": summaries})
}

// GetBestPricesLive serves the cache-guarded live variant of the best-price
// query.
func (h *APIHandler) GetBestPricesLive(c *gin.Context) {
	origin := strings.ToUpper(c.DefaultQuery("origin", "ICN"))
	transferFilter, ok := parseTransferFilter(c)
	if !ok {
		return
	}

	destinations := models.FilterDestinations(c.Query("region"), parseCodes(c.Query("codes")))
	if len(destinations) == 0 {
		badRequest(c, "no destinations matched the region/codes filter")
		return
	}

	params, ok := h.parseWindowParams(c)
	if !ok {
		return
	}
	params.TransferFilter = transferFilter
	params.International = true

	summaries, err := h.live.BestPrices(c.Request.Context(), origin, destinations, params)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"origin": origin, "items": summaries})
}

// GetSeries serves the store-backed price-over-time chart data.
func (h *APIHandler) GetSeries(c *gin.Context) {
	origin, destination, transferFilter, stayLength, startDate, numDays, ok := h.parseSeriesParams(c)
	if !ok {
		return
	}

	points, err := h.series.BuildSeries(c.Request.Context(), origin, destination, transferFilter, stayLength, startDate, numDays)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": destination, "points": points})
}

// GetSeriesLive serves the fetcher-backed series, guarded by the live cache.
func (h *APIHandler) GetSeriesLive(c *gin.Context) {
	origin, destination, transferFilter, stayLength, startDate, numDays, ok := h.parseSeriesParams(c)
	if !ok {
		return
	}

	points, err := h.live.BuildSeriesLive(c.Request.Context(), origin, destination, transferFilter, stayLength, startDate, numDays)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": destination, "points": points})
}

func (h *APIHandler) parseSeriesParams(c *gin.Context) (origin, destination string, transferFilter, stayLength int, startDate string, numDays int, ok bool) {
	origin = strings.ToUpper(c.DefaultQuery("origin", "ICN"))

	destination = strings.ToUpper(strings.TrimSpace(c.Query("destination")))
	if destination == "" {
		badRequest(c, "destination is required")
		return
	}
	if _, found := models.DestinationByCode(destination); !found {
		badRequest(c, "unknown destination code")
		return
	}

	transferFilter, tfOK := parseTransferFilter(c)
	if !tfOK {
		return
	}

	var err error
	stayLength, err = strconv.Atoi(c.DefaultQuery("stay", "3"))
	if err != nil || stayLength < 1 {
		badRequest(c, "stay must be a positive integer")
		return
	}

	startDate = c.Query("start")
	if _, err := models.ParseDate(startDate); err != nil {
		badRequest(c, "start must be an ISO date (YYYY-MM-DD)")
		return
	}

	numDays, err = strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || numDays < 1 || numDays > 120 {
		badRequest(c, "days must be between 1 and 120")
		return
	}

	ok = true
	return
}

func (h *APIHandler) parseWindowParams(c *gin.Context) (scan.Params, bool) {
	params := scan.Params{
		StartDate: c.Query("start"),
		NumDays:   h.cfg.ScanNumDays,
		MinStay:   h.cfg.ScanMinStay,
		MaxStay:   h.cfg.ScanMaxStay,
	}
	if params.StartDate == "" {
		params.StartDate = time.Now().AddDate(0, 0, h.cfg.ScanStartOffsetDays).Format(models.DateLayout)
	}
	if _, err := models.ParseDate(params.StartDate); err != nil {
		badRequest(c, "start must be an ISO date (YYYY-MM-DD)")
		return scan.Params{}, false
	}
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 120 {
			badRequest(c, "days must be between 1 and 120")
			return scan.Params{}, false
		}
		params.NumDays = n
	}
	if raw := c.Query("stay"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "stay must be a positive integer")
			return scan.Params{}, false
		}
		params.MinStay = n
		params.MaxStay = n
	}
	return params, true
}

type triggerScanRequest struct {
	Origin         string   `json:"origin"`
	Region         string   `json:"region"`
	Codes          []string `json:"codes"`
	StartDate      string   `json:"start_date"`
	NumDays        int      `json:"num_days"`
	MinStay        int      `json:"min_stay"`
	MaxStay        int      `json:"max_stay"`
	TransferFilter *int     `json:"transfer_filter"`
}

// TriggerScan runs a scan job synchronously and reports per-destination
// success/failure counts.
func (h *APIHandler) TriggerScan(c *gin.Context) {
	var req triggerScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	origin := strings.ToUpper(strings.TrimSpace(req.Origin))
	if origin == "" {
		origin = "ICN"
	}

	destinations := models.FilterDestinations(req.Region, req.Codes)
	if len(destinations) == 0 {
		badRequest(c, scan.ErrNoDestinations.Error())
		return
	}

	params := scan.Params{
		StartDate:     req.StartDate,
		NumDays:       req.NumDays,
		MinStay:       req.MinStay,
		MaxStay:       req.MaxStay,
		International: true,
	}
	if params.StartDate == "" {
		params.StartDate = time.Now().AddDate(0, 0, h.cfg.ScanStartOffsetDays).Format(models.DateLayout)
	}
	if params.NumDays == 0 {
		params.NumDays = h.cfg.ScanNumDays
	}
	if params.MinStay == 0 {
		params.MinStay = h.cfg.ScanMinStay
	}
	if params.MaxStay == 0 {
		params.MaxStay = h.cfg.ScanMaxStay
	}
	if req.TransferFilter != nil {
		params.TransferFilter = *req.TransferFilter
	} else {
		params.TransferFilter = models.TransferAny
	}
	if _, err := models.ParseDate(params.StartDate); err != nil {
		badRequest(c, "start_date must be an ISO date (YYYY-MM-DD)")
		return
	}
	if params.NumDays < 1 || params.NumDays > 120 {
		badRequest(c, "num_days must be between 1 and 120")
		return
	}
	if params.MinStay < 1 || params.MaxStay < params.MinStay {
		badRequest(c, "stay range must satisfy 1 <= min <= max")
		return
	}

	report := h.scanner.ScanAll(c.Request.Context(), origin, destinations, params)
	c.JSON(http.StatusOK, report)
}

// ListDestinations serves the static catalog, optionally filtered.
func (h *APIHandler) ListDestinations(c *gin.Context) {
	destinations := models.FilterDestinations(c.Query("region"), parseCodes(c.Query("codes")))
	c.JSON(http.StatusOK, gin.H{"items": destinations})
}

type liveFeedSubscription struct {
	Origin string   `json:"origin"`
	Region string   `json:"region"`
	Codes  []string `json:"codes"`
}

// LiveFeed pushes refreshed live best-price summaries over a websocket at
// the live-cache TTL cadence.
func (h *APIHandler) LiveFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var sub liveFeedSubscription
	if err := conn.ReadJSON(&sub); err != nil {
		return
	}
	origin := strings.ToUpper(strings.TrimSpace(sub.Origin))
	if origin == "" {
		origin = "ICN"
	}
	destinations := models.FilterDestinations(sub.Region, sub.Codes)
	if len(destinations) == 0 {
		_ = conn.WriteJSON(gin.H{"error": "no destinations matched the filter"})
		return
	}

	params := scan.Params{
		StartDate:      time.Now().AddDate(0, 0, h.cfg.ScanStartOffsetDays).Format(models.DateLayout),
		NumDays:        7,
		MinStay:        h.cfg.ScanMinStay,
		MaxStay:        h.cfg.ScanMaxStay,
		TransferFilter: models.TransferAny,
		International:  true,
	}

	interval := h.cfg.LiveCacheTTL
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The connection is hijacked, so the request context never fires on
	// client disconnect. A read pump is the only disconnect signal.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		summaries, err := h.live.BestPrices(ctx, origin, destinations, params)
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err != nil {
			if writeErr := conn.WriteJSON(gin.H{"error": "upstream unavailable"}); writeErr != nil {
				return
			}
		} else if err := conn.WriteJSON(gin.H{"origin": origin, "items": summaries}); err != nil {
			return
		}

		select {
		case <-disconnected:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
