// Package store persists search history, user preferences and the export log.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"MarketLens/internal/model"
)

// DefaultHistoryLimit caps the search history.
const DefaultHistoryLimit = 10

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ExportRecord logs one generated dataset.
type ExportRecord struct {
	ID        string    `json:"id" db:"id"`
	Symbol    string    `json:"symbol" db:"symbol"`
	Period    string    `json:"period" db:"period"`
	Kind      string    `json:"kind" db:"kind"`
	RowCount  int       `json:"row_count" db:"row_count"`
	ByteSize  int       `json:"byte_size" db:"byte_size"`
	Path      string    `json:"path,omitempty" db:"path"`
	CreatedAt time.Time `json:"created_at" db:"-"`
}

// Store is the preference and history collaborator.
type Store interface {
	// RecordSearch upper-cases symbol and moves it to the front of the
	// history, dropping the oldest entries beyond the limit.
	RecordSearch(ctx context.Context, symbol string) error
	// ListRecent returns up to limit symbols, most recent first. A
	// non-positive limit means the configured history limit.
	ListRecent(ctx context.Context, limit int) ([]string, error)
	ClearHistory(ctx context.Context) error
	// Preferences returns the stored preferences over the defaults.
	Preferences(ctx context.Context) (model.Preferences, error)
	// SavePreferences merges prefs into the stored set and returns the result.
	SavePreferences(ctx context.Context, prefs model.Preferences) (model.Preferences, error)
	// RecordExport assigns an ID and timestamp when absent and stores rec.
	RecordExport(ctx context.Context, rec ExportRecord) (ExportRecord, error)
	// Export returns one export record by ID.
	Export(ctx context.Context, id string) (ExportRecord, error)
	// ListExports returns up to limit export records, newest first.
	ListExports(ctx context.Context, limit int) ([]ExportRecord, error)
	Close() error
}

// Open creates a Store for driver: "memory", "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, historyLimit int) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "memory":
		return NewMemoryStore(historyLimit), nil
	case "sqlite", "postgres":
		return NewSQLStore(ctx, driver, dsn, historyLimit)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func prepareExport(rec ExportRecord, now time.Time) ExportRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Symbol = model.NormalizeSymbol(rec.Symbol)
	return rec
}

func historyLimitOr(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
