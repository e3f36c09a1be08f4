package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/takeshy/photorelay/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultDataFile = "history.db"

// Ledger is the persistent set of content keys already relayed
type Ledger struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open connects to the ledger at dsn (a SQLite path or a postgres URL) and
// ensures the schema exists
func Open(dsn string) (*Ledger, error) {
	if dsn == "" {
		dsn = defaultDataFile
	}

	db, err := database.Connect(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %q: %w", dsn, err)
	}

	l, err := New(db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return l, nil
}

// New wraps an existing connection and migrates the schema
func New(db *gorm.DB) (*Ledger, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// IsRecorded reports whether key has already been recorded
func (l *Ledger) IsRecorded(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	var n int64
	err := l.db.WithContext(ctx).Model(&Entry{}).Where("id = ?", key).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", key, err)
	}
	return n > 0, nil
}

// Record inserts key with label. Recording an existing key is a no-op.
func (l *Ledger) Record(ctx context.Context, key, label string) error {
	if key == "" {
		return ErrEmptyKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Key: key, Label: label, RecordedAt: now()}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", key, err)
	}
	return nil
}

// Get returns the entry for key
func (l *Ledger) Get(ctx context.Context, key string) (*Entry, error) {
	var e Entry
	err := l.db.WithContext(ctx).Where("id = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns the most recent entries, newest first. A limit <= 0 returns all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	q := l.db.WithContext(ctx).Order("uploaded_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded keys
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&Entry{}).Count(&n).Error
	return n, err
}

// CountSince returns the number of keys recorded at or after t
func (l *Ledger) CountSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&Entry{}).Where("uploaded_at >= ?", t.UTC().Round(0)).Count(&n).Error
	return n, err
}

// Stats summarizes the ledger
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	total, err := l.Count(ctx)
	if err != nil {
		return s, err
	}
	s.Total = total

	pattern := "%" + strings.TrimSpace(SkippedSizeSuffix)
	if err := l.db.WithContext(ctx).Model(&Entry{}).Where("filename LIKE ?", pattern).Count(&s.SizeSkipped).Error; err != nil {
		return s, err
	}

	latest, err := l.List(ctx, 1)
	if err != nil {
		return s, err
	}
	if len(latest) == 1 {
		s.LastEntryAt = latest[0].RecordedAt
	}
	return s, nil
}

// now drops the monotonic reading so stored timestamps compare as plain text
func now() time.Time {
	return time.Now().UTC().Round(0)
}

// Close releases the storage handle
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
