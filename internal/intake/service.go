// Package intake ties the case store, the data file and the optional side
// channels (geocoding, case events) into the operations a front end calls.
//
// A Service owns exactly one store. Its lifecycle is Open, then any number
// of Submit/Get/List/Report/Reload calls, then Close, which saves a final
// time. Calls are serialized so front ends that dispatch concurrently
// (HTTP) behave like the single-threaded form they replace.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/case-intake/internal/domain"
	"github.com/couchcryptid/case-intake/internal/observability"
	"github.com/couchcryptid/case-intake/internal/report"
	"github.com/couchcryptid/case-intake/internal/store"
)

// Repository reads and writes the full case collection.
type Repository interface {
	Load() ([]domain.Case, error)
	Save(cases []domain.Case) error
}

// Publisher announces a saved case to downstream consumers.
type Publisher interface {
	PublishCase(ctx context.Context, c domain.Case, created bool) error
}

// ErrNotOpen is returned by operations that need the initial load.
var ErrNotOpen = errors.New("case intake not opened")

// SaveError reports that a case was accepted into memory but the data file
// could not be written. Case holds the in-memory result.
type SaveError struct {
	Case domain.Case
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("case %s kept in memory but not saved: %v", e.Case.ID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Service is the domain-facing API for every front end.
type Service struct {
	mu        sync.Mutex
	store     *store.Store
	repo      Repository
	publisher Publisher
	geocoder  domain.Geocoder
	logger    *slog.Logger
	metrics   *observability.Metrics
	opened    atomic.Bool
}

// New creates a Service around st. publisher and geocoder may be nil to
// disable case events and location geocoding.
func New(st *store.Store, repo Repository, publisher Publisher, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:     st,
		repo:      repo,
		publisher: publisher,
		geocoder:  geocoder,
		logger:    logger,
		metrics:   metrics,
	}
}

// Open performs the initial load of the data file into the store.
func (s *Service) Open(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.opened.Store(true)
	return nil
}

// Reload replaces the store contents with the data file. On error the store
// keeps its current contents.
func (s *Service) Reload(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cases, err := s.repo.Load()
	if err != nil {
		s.metrics.FileLoads.WithLabelValues("error").Inc()
		s.logger.Error("load cases failed", "error", err)
		return fmt.Errorf("load cases: %w", err)
	}
	if err := s.store.Replace(cases); err != nil {
		s.metrics.FileLoads.WithLabelValues("error").Inc()
		return fmt.Errorf("load cases: %w", err)
	}

	outcome := "success"
	if len(cases) == 0 {
		outcome = "empty"
	}
	s.metrics.FileLoads.WithLabelValues(outcome).Inc()
	s.metrics.StoreSize.Set(float64(s.store.Len()))
	s.logger.Info("cases loaded", "count", len(cases))
	return nil
}

// Submit validates form and records the case it describes. A form with an
// empty id creates a case; a form carrying an existing id updates that case
// in place. The returned case reflects the store.
//
// Validation failures wrap domain.ErrValidation and leave the store
// untouched. Unknown ids wrap store.ErrNotFound. If the case was stored but
// the file write failed, a *SaveError is returned alongside the case.
func (s *Service) Submit(ctx context.Context, form domain.CaseForm) (domain.Case, error) {
	c, err := form.Build()
	if err != nil {
		s.metrics.ValidationFailures.Inc()
		return domain.Case{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := c.ID == ""
	var previous domain.Case
	if !created {
		var ok bool
		if previous, ok = s.store.FindByID(c.ID); !ok {
			return domain.Case{}, fmt.Errorf("submit case %s: %w", c.ID, store.ErrNotFound)
		}
	}

	// An edit that leaves the location alone keeps its coordinates.
	if !created && previous.Location == c.Location {
		c.Geo = previous.Geo
	} else {
		c = domain.EnrichWithGeocoding(ctx, c, s.geocoder, s.logger)
	}

	operation := "updated"
	if created {
		c, err = s.store.Add(c)
		if err != nil {
			return domain.Case{}, err
		}
		operation = "created"
	} else if err := s.store.Update(c); err != nil {
		return domain.Case{}, err
	}
	s.metrics.CasesSubmitted.WithLabelValues(operation).Inc()
	s.metrics.StoreSize.Set(float64(s.store.Len()))

	if err := s.saveLocked(); err != nil {
		return c, &SaveError{Case: c, Err: err}
	}
	s.logger.Info("case saved", "case_id", c.ID, "operation", operation,
		"type", c.EmergencyType.Type, "severity", c.EmergencyType.Severity)

	s.publish(ctx, c, created)
	return c, nil
}

// Get returns the case with the given id.
func (s *Service) Get(id string) (domain.Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.FindByID(id)
}

// List returns every case in insertion order.
func (s *Service) List() []domain.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// Report summarizes the current store contents.
func (s *Service) Report() report.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return report.Summarize(s.store.All())
}

// Save writes the current store contents to the data file.
func (s *Service) Save(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Close saves a final time. It is a no-op if Open never succeeded, so a
// failed startup load cannot overwrite the file with an empty store.
func (s *Service) Close(ctx context.Context) error {
	if !s.opened.Load() {
		return nil
	}
	if err := s.Save(ctx); err != nil {
		return err
	}
	s.opened.Store(false)
	return nil
}

// CheckReadiness reports whether the initial load has completed.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.opened.Load() {
		return ErrNotOpen
	}
	return nil
}

func (s *Service) saveLocked() error {
	start := time.Now()
	if err := s.repo.Save(s.store.All()); err != nil {
		s.metrics.FileSaves.WithLabelValues("error").Inc()
		s.logger.Error("save cases failed", "error", err)
		return fmt.Errorf("save cases: %w", err)
	}
	s.metrics.FileSaves.WithLabelValues("success").Inc()
	s.metrics.FileSaveDuration.Observe(time.Since(start).Seconds())
	return nil
}

// publish emits the case event. Failures are logged, never returned: the
// data file is the system of record.
func (s *Service) publish(ctx context.Context, c domain.Case, created bool) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCase(ctx, c, created); err != nil {
		s.metrics.EventsPublished.WithLabelValues("error").Inc()
		s.logger.Warn("publish case event failed", "case_id", c.ID, "error", err)
		return
	}
	s.metrics.EventsPublished.WithLabelValues("success").Inc()
}
