package storage

import (
	"context"

	"callscribe/internal/domain"
)

// Journal records the outcome of extraction runs. It never stores metadata
// or transcripts, only who asked for what and how it ended.
// This allows us to swap storage implementations without touching callers.
type Journal interface {
	// SaveRun stores a run record. An empty ID is filled in.
	SaveRun(ctx context.Context, run domain.RunRecord) (domain.RunRecord, error)

	// RecentRuns returns up to limit runs, newest first. limit <= 0 means all.
	RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// RunsByUser returns up to limit runs requested by userID, newest first.
	RunsByUser(ctx context.Context, userID int64, limit int) ([]domain.RunRecord, error)

	// Close gracefully shuts down the journal.
	Close() error
}
