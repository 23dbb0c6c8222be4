package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"farewatch/internal/models"
	"farewatch/internal/obs"
	"farewatch/internal/services/vendorapi"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fetcher is the upstream calendar dependency of the scanner.
type Fetcher interface {
	FetchCalendar(ctx context.Context, req vendorapi.CalendarRequest) ([]models.CalendarEntry, error)
}

// Committer persists one destination's scan as the new latest generation.
type Committer interface {
	CommitGeneration(ctx context.Context, p models.Partition, rows []models.FareSnapshot) (int, error)
}

// Params describes one scan window: NumDays consecutive departure dates
// starting at StartDate, crossed with stay lengths MinStay..MaxStay.
type Params struct {
	StartDate      string
	NumDays        int
	MinStay        int
	MaxStay        int
	TransferFilter int
	International  bool
}

func (p Params) validate() error {
	if _, err := models.ParseDate(p.StartDate); err != nil {
		return err
	}
	if p.NumDays < 1 {
		return fmt.Errorf("num days must be >= 1, got %d", p.NumDays)
	}
	if p.MinStay < 1 || p.MaxStay < p.MinStay {
		return fmt.Errorf("stay range must satisfy 1 <= min <= max, got %d..%d", p.MinStay, p.MaxStay)
	}
	return nil
}

// DestinationReport accounts one destination's scan within a job.
type DestinationReport struct {
	Destination string `json:"destination"`
	RowsWritten int    `json:"rows_written"`
	PricedCells int    `json:"priced_cells"`
	EmptyCells  int    `json:"empty_cells"`
	FailedCells int    `json:"failed_cells"`
	Error       string `json:"error,omitempty"`
}

// JobReport summarizes a full scan job across destinations.
type JobReport struct {
	JobID        string              `json:"job_id"`
	Origin       string              `json:"origin"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	Destinations []DestinationReport `json:"destinations"`
	Succeeded    int                 `json:"succeeded"`
	Failed       int                 `json:"failed"`
}

// Scanner walks departure-date x stay-length grids against the upstream
// calendar and commits the resulting snapshot generations.
type Scanner struct {
	fetcher    Fetcher
	store      Committer
	log        *zap.Logger
	metrics    *obs.Metrics
	numWorkers int
	now        func() time.Time
}

func NewScanner(fetcher Fetcher, store Committer, numWorkers int, log *zap.Logger, metrics *obs.Metrics) *Scanner {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &Scanner{
		fetcher:    fetcher,
		store:      store,
		log:        log.Named("scan"),
		metrics:    metrics,
		numWorkers: numWorkers,
		now:        time.Now,
	}
}

// ScanDestination walks one destination's grid sequentially and returns one
// row per cell. A failed or empty cell still produces a row with a null
// price: "scanned, no fare found" is a recorded fact, distinct from "never
// scanned".
func (s *Scanner) ScanDestination(ctx context.Context, origin, destination string, p Params) ([]models.FareSnapshot, DestinationReport, error) {
	report := DestinationReport{Destination: destination}

	if err := p.validate(); err != nil {
		return nil, report, err
	}

	collectedAt := s.now()
	rows := make([]models.FareSnapshot, 0, p.NumDays*(p.MaxStay-p.MinStay+1))

	for day := 0; day < p.NumDays; day++ {
		departure, err := models.AddDays(p.StartDate, day)
		if err != nil {
			return nil, report, err
		}
		for stay := p.MinStay; stay <= p.MaxStay; stay++ {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}

			returnDate, err := models.ReturnDateFor(departure, stay)
			if err != nil {
				return nil, report, err
			}
			row := models.FareSnapshot{
				Origin:         origin,
				Destination:    destination,
				DepartureDate:  departure,
				ReturnDate:     returnDate,
				StayLength:     stay,
				TransferFilter: p.TransferFilter,
				CollectedAt:    collectedAt,
				IsLatest:       true,
			}

			fetchStart := time.Now()
			entries, err := s.fetcher.FetchCalendar(ctx, vendorapi.CalendarRequest{
				Origin:         origin,
				Destination:    destination,
				DepartureDate:  departure,
				StayLength:     stay,
				TransferFilter: p.TransferFilter,
				International:  p.International,
			})
			if s.metrics != nil {
				s.metrics.ObserveUpstreamLatency(time.Since(fetchStart).Seconds())
			}

			switch {
			case err != nil:
				// A single cell's failure never aborts the scan.
				report.FailedCells++
				if s.metrics != nil {
					s.metrics.IncUpstreamError()
					s.metrics.IncScanCell(obs.CellOutcomeFailed)
				}
				s.log.Debug("cell fetch failed",
					zap.String("destination", destination),
					zap.String("departure", departure),
					zap.Int("stay", stay),
					zap.Error(err))
			default:
				if match := SelectExact(entries, departure, stay); match != nil {
					price := match.Price
					row.MinPrice = &price
					if match.Airline != "" {
						airline := match.Airline
						row.MinAirline = &airline
					}
					report.PricedCells++
					if s.metrics != nil {
						s.metrics.IncScanCell(obs.CellOutcomePriced)
					}
				} else {
					report.EmptyCells++
					if s.metrics != nil {
						s.metrics.IncScanCell(obs.CellOutcomeNoMatch)
					}
				}
			}

			rows = append(rows, row)
		}
	}

	return rows, report, nil
}

// ScanAll scans the given destinations with a bounded worker pool and
// commits each destination's rows as its partition's new latest generation.
// Destinations scan in parallel; each grid stays sequential to bound
// upstream load.
func (s *Scanner) ScanAll(ctx context.Context, origin string, destinations []models.Destination, p Params) JobReport {
	job := JobReport{
		JobID:     uuid.New().String(),
		Origin:    origin,
		StartedAt: s.now(),
	}

	jobs := make(chan models.Destination)
	results := make(chan DestinationReport, len(destinations))

	var failed int64
	var wg sync.WaitGroup
	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dest := range jobs {
				results <- s.scanAndCommit(ctx, origin, dest.Code, p, &failed)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, dest := range destinations {
			select {
			case jobs <- dest:
			case <-ctx.Done():
				// Keep the accounting total: destinations never handed to a
				// worker still get a report.
				for _, skipped := range destinations[i:] {
					atomic.AddInt64(&failed, 1)
					results <- DestinationReport{
						Destination: skipped.Code,
						Error:       ctx.Err().Error(),
					}
				}
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	for report := range results {
		job.Destinations = append(job.Destinations, report)
		if report.Error == "" {
			job.Succeeded++
		}
	}
	job.Failed = int(atomic.LoadInt64(&failed))
	job.FinishedAt = s.now()

	s.log.Info("scan job finished",
		zap.String("job_id", job.JobID),
		zap.String("origin", origin),
		zap.Int("destinations", len(destinations)),
		zap.Int("succeeded", job.Succeeded),
		zap.Int("failed", job.Failed),
		zap.Duration("took", job.FinishedAt.Sub(job.StartedAt)))

	return job
}

func (s *Scanner) scanAndCommit(ctx context.Context, origin, destination string, p Params, failed *int64) DestinationReport {
	rows, report, err := s.ScanDestination(ctx, origin, destination, p)
	if err != nil {
		report.Error = err.Error()
		atomic.AddInt64(failed, 1)
		return report
	}

	written, err := s.store.CommitGeneration(ctx, models.Partition{
		Origin:         origin,
		Destination:    destination,
		TransferFilter: p.TransferFilter,
	}, rows)
	if err != nil {
		report.Error = err.Error()
		atomic.AddInt64(failed, 1)
		return report
	}
	report.RowsWritten = written
	if s.metrics != nil {
		s.metrics.AddRowsWritten(written)
	}
	return report
}

// ErrNoDestinations is returned by callers that resolve an empty
// destination filter before invoking ScanAll.
var ErrNoDestinations = errors.New("no destinations matched the scan filter")
