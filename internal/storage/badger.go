package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"callscribe/internal/domain"
)

// ErrReadOnly is returned by SaveRun on a journal opened read-only.
var ErrReadOnly = errors.New("journal is opened read-only")

// ErrLocked means another process holds the journal open for writing.
var ErrLocked = errors.New("journal is locked by another process")

// BadgerJournal implements Journal using BadgerDB.
type BadgerJournal struct {
	db        *badger.DB
	retention time.Duration
	readOnly  bool
	log       logrus.FieldLogger
}

// NewBadgerJournal opens the journal at dbPath. Records expire after
// retention; zero keeps them forever.
func NewBadgerJournal(dbPath string, retention time.Duration, logger logrus.FieldLogger) (*BadgerJournal, error) {
	return openBadgerJournal(badger.DefaultOptions(dbPath), retention, logger)
}

// NewBadgerJournalReadOnly opens an existing journal for listing only.
// Several read-only journals may share a directory, but none can open it
// while a read-write journal holds it.
func NewBadgerJournalReadOnly(dbPath string, logger logrus.FieldLogger) (*BadgerJournal, error) {
	return openBadgerJournal(badger.DefaultOptions(dbPath).WithReadOnly(true), 0, logger)
}

func openBadgerJournal(opts badger.Options, retention time.Duration, logger logrus.FieldLogger) (*BadgerJournal, error) {
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}
	log := logger.WithFields(logrus.Fields{"path": opts.Dir, "read_only": opts.ReadOnly})

	db, err := badger.Open(opts)
	if err != nil {
		log.WithError(err).Error("Failed to open BadgerDB")
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("failed to open badger db at %s: %w: %w", opts.Dir, ErrLocked, err)
		}
		return nil, fmt.Errorf("failed to open badger db at %s: %w", opts.Dir, err)
	}
	log.Info("BadgerDB opened successfully")

	return &BadgerJournal{
		db:        db,
		retention: retention,
		readOnly:  opts.ReadOnly,
		log:       logger.WithField("component", "journal"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (j *BadgerJournal) Close() error {
	j.log.Info("Closing BadgerDB...")
	if err := j.db.Close(); err != nil {
		j.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	j.log.Info("BadgerDB closed.")
	return nil
}

// runKey orders runs by start time.
// Format: run:{startedAtUnixNano}:{id}
func runKey(r domain.RunRecord) []byte {
	return []byte(fmt.Sprintf("run:%020d:%s", r.StartedAt.UnixNano(), r.ID))
}

// userRunKey indexes a run under its requesting user.
// Format: user:{userID}:run:{startedAtUnixNano}:{id}
func userRunKey(r domain.RunRecord) []byte {
	return []byte(fmt.Sprintf("user:%d:run:%020d:%s", r.UserID, r.StartedAt.UnixNano(), r.ID))
}

func userPrefix(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d:run:", userID))
}

var runPrefix = []byte("run:")

// SaveRun stores the run and, for user-initiated runs, its user index entry.
func (j *BadgerJournal) SaveRun(ctx context.Context, run domain.RunRecord) (domain.RunRecord, error) {
	if j.readOnly {
		return run, ErrReadOnly
	}
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return run, fmt.Errorf("failed to generate run id: %w", err)
		}
		run.ID = id.String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	log := j.log.WithFields(logrus.Fields{
		"run_id": run.ID,
		"url":    run.URL,
		"source": run.Source,
	})

	runBytes, err := json.Marshal(run)
	if err != nil {
		log.WithError(err).Error("Failed to marshal run to JSON")
		return run, fmt.Errorf("failed to marshal run: %w", err)
	}

	key := runKey(run)
	err = j.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(j.entry(key, runBytes)); err != nil {
			return err
		}
		if run.UserID != 0 {
			return txn.SetEntry(j.entry(userRunKey(run), key))
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to save run to BadgerDB")
		return run, fmt.Errorf("failed to save run: %w", err)
	}

	log.WithField("status", run.Status).Debug("Run saved")
	return run, nil
}

func (j *BadgerJournal) entry(key, val []byte) *badger.Entry {
	e := badger.NewEntry(key, val)
	if j.retention > 0 {
		e = e.WithTTL(j.retention)
	}
	return e
}

// RecentRuns lists runs newest first.
func (j *BadgerJournal) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	var runs []domain.RunRecord

	err := j.db.View(func(txn *badger.Txn) error {
		return scanReverse(ctx, txn, runPrefix, limit, func(item *badger.Item) error {
			run, err := decodeRun(item)
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		j.log.WithError(err).Error("Failed to retrieve runs from BadgerDB")
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// RunsByUser lists one user's runs newest first.
func (j *BadgerJournal) RunsByUser(ctx context.Context, userID int64, limit int) ([]domain.RunRecord, error) {
	log := j.log.WithField("user_id", userID)
	var runs []domain.RunRecord

	err := j.db.View(func(txn *badger.Txn) error {
		return scanReverse(ctx, txn, userPrefix(userID), limit, func(idx *badger.Item) error {
			mainKey, err := idx.ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(mainKey)
			if errors.Is(err, badger.ErrKeyNotFound) {
				// The run expired before its index entry.
				return nil
			}
			if err != nil {
				return err
			}
			run, err := decodeRun(item)
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		log.WithError(err).Error("Failed to retrieve user runs from BadgerDB")
		return nil, fmt.Errorf("failed to get runs for user %d: %w", userID, err)
	}

	log.WithField("run_count", len(runs)).Debug("User runs retrieved")
	return runs, nil
}

// scanReverse visits keys under prefix from the largest down, stopping
// after limit visits when limit > 0.
func scanReverse(ctx context.Context, txn *badger.Txn, prefix []byte, limit int, visit func(*badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := append(append([]byte{}, prefix...), 0xFF)
	count := 0
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(it.Item()); err != nil {
			return err
		}
		count++
		if limit > 0 && count >= limit {
			break
		}
	}
	return nil
}

func decodeRun(item *badger.Item) (domain.RunRecord, error) {
	var run domain.RunRecord
	err := item.Value(func(val []byte) error {
		// Make a copy of the value slice before unmarshalling
		valCopy := make([]byte, len(val))
		copy(valCopy, val)
		return json.Unmarshal(valCopy, &run)
	})
	if err != nil {
		return run, fmt.Errorf("failed to decode run %s: %w", string(item.Key()), err)
	}
	return run, nil
}

// RunGC reclaims value log space until ctx is cancelled.
func (j *BadgerJournal) RunGC(ctx context.Context, interval time.Duration) {
	if j.readOnly {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := j.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				j.log.Debug("BadgerDB GC completed")
			case errors.Is(err, badger.ErrNoRewrite):
				j.log.Debug("BadgerDB GC: No rewrite needed")
			case errors.Is(err, badger.ErrDBClosed):
				return
			default:
				j.log.WithError(err).Error("BadgerDB GC failed")
			}
		case <-ctx.Done():
			j.log.Debug("Stopping BadgerDB GC routine")
			return
		}
	}
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
