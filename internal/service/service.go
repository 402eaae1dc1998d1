// Package service is the single entry point the outer surfaces (HTTP, Telegram,
// CLI, MCP) use to run extractions and read the run journal.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"callscribe/internal/domain"
	"callscribe/internal/extract"
	"callscribe/internal/storage"
)

// Limits applied to journal listings.
const (
	DefaultRunLimit = 20
	MaxRunLimit     = 200
)

// Extractor runs one extraction with retries.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) extract.Outcome
}

// Request is one extraction as seen by a surface.
type Request struct {
	URL    string
	Source domain.Source
	UserID int64
}

// Service validates requests, runs the engine and journals the outcome.
type Service struct {
	engine  Extractor
	journal storage.Journal
	now     func() time.Time
	log     logrus.FieldLogger
}

// New creates a service. journal may be nil, in which case runs are not recorded.
func New(engine Extractor, journal storage.Journal, logger logrus.FieldLogger) *Service {
	return &Service{
		engine:  engine,
		journal: journal,
		now:     time.Now,
		log:     logger.WithField("component", "service"),
	}
}

// Extract validates req and runs it. A validation failure is returned as an
// error wrapping domain.ErrInvalidURL and no browser work happens. Any other
// failure is reported inside the result.
func (s *Service) Extract(ctx context.Context, req Request) (domain.ExtractionResult, error) {
	log := s.log.WithFields(logrus.Fields{
		"url":    req.URL,
		"source": req.Source,
	})

	if err := (domain.ExtractionRequest{URL: req.URL}).Validate(); err != nil {
		log.WithError(err).Warn("Rejected extraction request")
		return domain.ExtractionResult{}, err
	}

	started := s.now()
	out := s.engine.Extract(ctx, req.URL)

	run := domain.RunRecord{
		URL:        req.URL,
		Source:     req.Source,
		UserID:     req.UserID,
		Status:     domain.RunSucceeded,
		Attempts:   out.Attempts,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if !out.Result.OK() {
		run.Status = domain.RunFailed
		run.Error = out.Result.Error
	}
	s.record(run, log)

	log.WithFields(logrus.Fields{
		"status":   run.Status,
		"attempts": out.Attempts,
	}).Info("Extraction finished")
	return out.Result, nil
}

// record journals a run. Journal failures never affect the caller.
func (s *Service) record(run domain.RunRecord, log logrus.FieldLogger) {
	if s.journal == nil {
		return
	}
	// The request context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.journal.SaveRun(ctx, run); err != nil {
		log.WithError(err).Error("Failed to record run")
	}
}

// RecentRuns lists the latest runs. limit is clamped to [1, MaxRunLimit];
// zero or less means DefaultRunLimit.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.RecentRuns(ctx, ClampLimit(limit))
}

// RunsByUser lists the latest runs requested by userID.
func (s *Service) RunsByUser(ctx context.Context, userID int64, limit int) ([]domain.RunRecord, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.RunsByUser(ctx, userID, ClampLimit(limit))
}

// ClampLimit normalizes a listing limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRunLimit
	case limit > MaxRunLimit:
		return MaxRunLimit
	default:
		return limit
	}
}
