// Package pipeline loads the alert source, normalizes each row, reconciles
// alert chains, and publishes the result as an immutable snapshot.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/filter"
	"github.com/joshmcarthur/cap-alerts/internal/ingest"
	"github.com/joshmcarthur/cap-alerts/internal/observability"
	"github.com/joshmcarthur/cap-alerts/internal/timeline"
)

// ErrSuperseded is returned by Reload when a newer load started before this
// one finished. Its result is discarded.
var ErrSuperseded = errors.New("load superseded by a newer request")

// State is the loader lifecycle: idle, then loading, then ready or failed.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Progress checkpoints within one load.
const (
	progressFetched  = 0.2
	progressIngested = 0.3
	progressRows     = 0.6 // share of the bar spent on row processing
)

// Status is an observable point in the loader lifecycle.
type Status struct {
	State     State       `json:"state"`
	Progress  float64     `json:"progress"`
	Error     string      `json:"error,omitempty"`
	LoadID    string      `json:"loadId,omitempty"`
	Stats     *BatchStats `json:"stats,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Publisher receives every display alert after a successful load.
type Publisher interface {
	PublishBatch(ctx context.Context, alerts []domain.DisplayAlert) error
}

// Settings tunes a Service.
type Settings struct {
	FetchAttempts int
	RowWorkers    int
}

type snapshot struct {
	alerts  []domain.DisplayAlert
	options filter.Options
	stats   BatchStats
}

// Service owns the published alert collection. Readers never block loads:
// each successful load swaps in a new snapshot.
type Service struct {
	source    ingest.Source
	processor *RowProcessor
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	settings  Settings

	generation atomic.Uint64
	current    atomic.Pointer[snapshot]

	mu          sync.Mutex
	status      Status
	subscribers map[int]chan Status
	nextSub     int
}

// New creates a Service. Pass a nil publisher to disable publishing.
func New(src ingest.Source, processor *RowProcessor, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, settings Settings) *Service {
	return &Service{
		source:      src,
		processor:   processor,
		publisher:   publisher,
		logger:      logger,
		metrics:     metrics,
		settings:    settings,
		status:      Status{State: StateIdle, UpdatedAt: domain.Now()},
		subscribers: make(map[int]chan Status),
	}
}

// Reload runs one complete load. If another Reload starts before this one
// finishes, this result is dropped and ErrSuperseded is returned. A failed
// load leaves the previous snapshot in place.
func (s *Service) Reload(ctx context.Context) (Status, error) {
	gen := s.generation.Add(1)
	loadID := uuid.NewString()
	logger := s.logger.With("load_id", loadID)
	start := time.Now()

	s.transition(gen, Status{State: StateLoading, LoadID: loadID})
	s.metrics.LoadProgress.Set(0)
	logger.Info("load started", "source", s.source.String())

	snap, err := s.load(ctx, gen, logger)
	s.metrics.LoadDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		s.metrics.LoadsTotal.WithLabelValues(observability.OutcomeStale).Inc()
		logger.Info("discarding superseded load result")
		return s.Status(), ErrSuperseded
	}
	if err != nil {
		s.setStatusLocked(Status{State: StateFailed, Error: err.Error(), LoadID: loadID})
		status := s.status
		s.mu.Unlock()
		s.metrics.LoadsTotal.WithLabelValues(observability.OutcomeFailed).Inc()
		logger.Error("load failed", "error", err)
		return status, err
	}
	s.current.Store(snap)
	stats := snap.stats
	s.setStatusLocked(Status{State: StateReady, Progress: 1, LoadID: loadID, Stats: &stats})
	status := s.status
	s.mu.Unlock()

	s.metrics.LoadsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	s.metrics.AlertGroups.Set(float64(len(snap.alerts)))
	s.metrics.LoadProgress.Set(1)
	logger.Info("load complete",
		"rows", stats.RowsRead,
		"alerts", stats.Alerts,
		"skipped", stats.Skipped,
		"failures", len(stats.Failures),
		"groups", stats.Groups,
		"duration", time.Since(start),
	)

	s.publish(ctx, snap.alerts, logger)
	return status, nil
}

func (s *Service) load(ctx context.Context, gen uint64, logger *slog.Logger) (*snapshot, error) {
	data, err := ingest.Fetch(ctx, s.source, s.settings.FetchAttempts, logger)
	if err != nil {
		return nil, err
	}
	s.progress(gen, progressFetched)

	read, err := ingest.ReadRows(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", s.source.String(), err)
	}
	s.metrics.RowsRead.Add(float64(len(read.Rows)))
	s.progress(gen, progressIngested)

	batch, err := s.processor.ProcessBatch(ctx, read.Rows, s.settings.RowWorkers, func(done, total int) {
		s.progress(gen, progressIngested+progressRows*float64(done)/float64(total))
	})
	if err != nil {
		return nil, fmt.Errorf("process rows: %w", err)
	}
	s.metrics.AlertsParsed.Add(float64(batch.Stats.Alerts))
	s.metrics.RowsSkipped.Add(float64(batch.Stats.Skipped))
	s.metrics.RowFailures.Add(float64(len(batch.Stats.Failures)))

	grouped := timeline.Group(batch.Alerts)
	stats := batch.Stats
	stats.Groups = len(grouped)
	stats.Warnings = read.Warnings

	return &snapshot{
		alerts:  grouped,
		options: filter.AvailableOptions(grouped),
		stats:   stats,
	}, nil
}

func (s *Service) publish(ctx context.Context, alerts []domain.DisplayAlert, logger *slog.Logger) {
	if s.publisher == nil || len(alerts) == 0 {
		return
	}
	if err := s.publisher.PublishBatch(ctx, alerts); err != nil {
		logger.Error("publish display alerts failed", "error", err, "count", len(alerts))
		return
	}
	s.metrics.MessagesPublished.Add(float64(len(alerts)))
}

// Status returns the latest lifecycle state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Alerts returns the published display alerts in grouping order, or nil
// before the first successful load.
func (s *Service) Alerts() []domain.DisplayAlert {
	if snap := s.current.Load(); snap != nil {
		return snap.alerts
	}
	return nil
}

// Lookup returns the display alert with the given id.
func (s *Service) Lookup(id string) (domain.DisplayAlert, bool) {
	return filter.Lookup(s.Alerts(), id)
}

// Query applies spec to the published alerts, most recent first.
func (s *Service) Query(spec filter.Spec) []domain.DisplayAlert {
	return filter.Apply(s.Alerts(), spec)
}

// Options returns the filter choices present in the published alerts.
func (s *Service) Options() filter.Options {
	if snap := s.current.Load(); snap != nil {
		return snap.options
	}
	return filter.Options{}
}

// CheckReadiness returns nil once a load has succeeded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.current.Load() == nil {
		return errors.New("no alerts loaded yet")
	}
	return nil
}

// Subscribe returns a channel carrying the latest Status. The current status
// is delivered immediately. A slow reader may miss intermediate progress but
// always sees the most recent state. Call cancel to stop receiving.
func (s *Service) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	ch <- s.status
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// transition moves to status if gen is still the newest load.
func (s *Service) transition(gen uint64, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		return
	}
	s.setStatusLocked(status)
}

func (s *Service) progress(gen uint64, fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen || s.status.State != StateLoading || fraction <= s.status.Progress {
		return
	}
	next := s.status
	next.Progress = fraction
	s.setStatusLocked(next)
	s.metrics.LoadProgress.Set(fraction)
}

func (s *Service) setStatusLocked(status Status) {
	status.UpdatedAt = domain.Now()
	s.status = status
	for _, ch := range s.subscribers {
		offerLatest(ch, status)
	}
}

// offerLatest replaces any unread value in ch with status.
func offerLatest(ch chan Status, status Status) {
	select {
	case ch <- status:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- status:
	default:
	}
}
