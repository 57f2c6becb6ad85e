package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/vhvplatform/go-marketplace-notifications/internal/detector"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.uber.org/multierr"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"

	recordTimeout = 5 * time.Second
)

// RunRecorder stores detector run history
type RunRecorder interface {
	Create(ctx context.Context, run *domain.DetectorRun) error
}

// Entry describes one registered detector
type Entry struct {
	Detector string    `json:"detector"`
	Schedule string    `json:"schedule"`
	Enabled  bool      `json:"enabled"`
	Next     time.Time `json:"next,omitempty"`
	Prev     time.Time `json:"prev,omitempty"`
}

// DetectorScheduler runs every enabled detector on its own cron schedule.
// Ticks of different detectors, and of the same detector, may overlap.
type DetectorScheduler struct {
	cron      *cron.Cron
	detectors []detector.Detector
	runs      RunRecorder
	clock     clock.Clock
	log       *logger.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewDetectorScheduler creates a new scheduler. runs may be nil to skip
// run history.
func NewDetectorScheduler(detectors []detector.Detector, runs RunRecorder, clk clock.Clock, log *logger.Logger) *DetectorScheduler {
	return &DetectorScheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		detectors: detectors,
		runs:      runs,
		clock:     clk,
		log:       log,
		entries:   make(map[string]cron.EntryID),
	}
}

// Start registers every enabled detector and starts the cron loop. A
// detector with an invalid schedule is reported and left out; the others
// still run.
func (s *DetectorScheduler) Start() error {
	s.log.Info("Starting detector scheduler")

	var errs error
	for _, d := range s.detectors {
		cfg := d.Config()
		if !cfg.Enabled {
			s.log.Info("Detector disabled", "detector", d.Name())
			continue
		}
		if err := s.register(d); err != nil {
			s.log.Error("Failed to register detector", "detector", d.Name(), "schedule", cfg.Schedule, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}

	s.cron.Start()
	s.log.Info("Detector scheduler started", "registered", len(s.entries))
	return errs
}

// Stop stops scheduling new ticks and waits for running ones until ctx
// expires
func (s *DetectorScheduler) Stop(ctx context.Context) error {
	s.log.Info("Stopping detector scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DetectorScheduler) register(d detector.Detector) error {
	entryID, err := s.cron.AddFunc(d.Config().Schedule, func() {
		s.execute(context.Background(), d, TriggerSchedule)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[d.Name()] = entryID
	s.mu.Unlock()
	s.log.Info("Registered detector", "detector", d.Name(), "schedule", d.Config().Schedule)
	return nil
}

// RunNow runs one tick of the named detector synchronously, whether or not
// it is enabled
func (s *DetectorScheduler) RunNow(ctx context.Context, name string) (*domain.DetectorRun, error) {
	d := detector.Find(s.detectors, name)
	if d == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("detector %q not found", name), nil)
	}
	return s.execute(ctx, d, TriggerManual), nil
}

// Entries lists every detector with its schedule and, for registered
// ones, the next and previous tick
func (s *DetectorScheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.detectors))
	for _, d := range s.detectors {
		cfg := d.Config()
		e := Entry{Detector: d.Name(), Schedule: cfg.Schedule, Enabled: cfg.Enabled}
		if id, ok := s.entries[d.Name()]; ok {
			ce := s.cron.Entry(id)
			e.Next, e.Prev = ce.Next, ce.Prev
		}
		out = append(out, e)
	}
	return out
}

// Detectors returns the detectors this scheduler manages
func (s *DetectorScheduler) Detectors() []detector.Detector {
	return s.detectors
}

// execute runs one tick and records it. A panicking detector is recorded
// as a failed run.
func (s *DetectorScheduler) execute(ctx context.Context, d detector.Detector, trigger string) *domain.DetectorRun {
	run := &domain.DetectorRun{
		RunID:     uuid.NewString(),
		Detector:  d.Name(),
		Trigger:   trigger,
		StartedAt: s.clock.Now(),
	}

	stats, err := safeRun(ctx, d)
	run.FinishedAt = s.clock.Now()
	run.Scanned = stats.Scanned
	run.Emitted = stats.Emitted
	run.Skipped = stats.Skipped
	run.Failed = stats.Failed
	run.Transitioned = stats.Transitioned
	if err != nil {
		run.Error = err.Error()
		s.log.Error("Detector run failed", "detector", d.Name(), "run_id", run.RunID, "error", err)
	}

	if s.runs != nil {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := s.runs.Create(recCtx, run); err != nil {
			s.log.Warn("Failed to record detector run", "detector", d.Name(), "run_id", run.RunID, "error", err)
		}
	}
	return run
}

func safeRun(ctx context.Context, d detector.Detector) (stats detector.RunStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Run(ctx)
}
