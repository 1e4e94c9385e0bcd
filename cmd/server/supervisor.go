package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"presence/internal/feed"
	"presence/internal/mirror"
	"presence/internal/mirror/models"
	"presence/internal/platform/config"
	"presence/internal/platform/metrics"
)

// healthPollInterval paces the supervisor's liveness checks.
const healthPollInterval = time.Second

// feedSupervisor owns the mirror lifecycle. Subscriptions never self-heal; on
// a terminal feed error the supervisor either replaces the whole mirror with
// a fresh one or, when resubscription is disabled, stops the server. Handlers
// read through the supervisor so a replacement is invisible to them; open
// event streams end with the old mirror and clients reconnect.
type feedSupervisor struct {
	log    *slog.Logger
	mtr    *metrics.Metrics
	source feed.Source
	cfg    config.Feed

	mu      sync.RWMutex
	current *mirror.Mirror
}

func newFeedSupervisor(source feed.Source, cfg config.Feed, log *slog.Logger, mtr *metrics.Metrics) *feedSupervisor {
	return &feedSupervisor{
		log:    log,
		mtr:    mtr,
		source: source,
		cfg:    cfg,
	}
}

// Start opens the first mirror.
func (s *feedSupervisor) Start(ctx context.Context) error {
	m := mirror.New(s.source, s.cfg.AttendanceLimit, s.log, s.mtr)
	if err := m.Start(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = m
	s.mu.Unlock()
	return nil
}

// Run watches mirror health until the context ends. A returned error stops
// the server.
func (s *feedSupervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if s.mirror().Healthy() {
			attempts = 0
			continue
		}

		if s.cfg.ResubscribeAttempts == 0 {
			return fmt.Errorf("change feed lost and resubscription is disabled")
		}
		attempts++
		if attempts > s.cfg.ResubscribeAttempts {
			return fmt.Errorf("change feed lost; gave up after %d resubscription attempts", s.cfg.ResubscribeAttempts)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.ResubscribeBackoff):
		}

		next := mirror.New(s.source, s.cfg.AttendanceLimit, s.log, s.mtr)
		if err := next.Start(ctx); err != nil {
			s.log.Error("mirror restart failed", "attempt", attempts, "error", err.Error())
			continue
		}

		s.mu.Lock()
		old := s.current
		s.current = next
		s.mu.Unlock()
		old.Close()

		s.log.Info("mirror restarted after feed loss", "attempt", attempts)
	}
}

// Close shuts the active mirror down.
func (s *feedSupervisor) Close() {
	s.mirror().Close()
}

func (s *feedSupervisor) mirror() *mirror.Mirror {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// The supervisor is the MirrorService the HTTP layer sees.

func (s *feedSupervisor) Attendance() (mirror.AttendanceView, error) {
	return s.mirror().Attendance()
}

func (s *feedSupervisor) Students() (mirror.StudentsView, error) {
	return s.mirror().Students()
}

func (s *feedSupervisor) Stats() (models.AggregateSnapshot, error) {
	return s.mirror().Stats()
}

func (s *feedSupervisor) Revision() uint64 {
	return s.mirror().Revision()
}

func (s *feedSupervisor) Watch() (<-chan uint64, func()) {
	return s.mirror().Watch()
}

func (s *feedSupervisor) Healthy() bool {
	return s.mirror().Healthy()
}
