package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketLens/internal/model"
)

// MemoryStore keeps everything in process. Used when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	limit   int
	history []string
	prefs   model.Preferences
	exports map[string]ExportRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(historyLimit int) *MemoryStore {
	return &MemoryStore{
		limit:   historyLimitOr(historyLimit),
		prefs:   model.Preferences{},
		exports: make(map[string]ExportRecord),
		now:     time.Now,
	}
}

func (m *MemoryStore) RecordSearch(_ context.Context, symbol string) error {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]string, 0, m.limit)
	next = append(next, sym)
	for _, s := range m.history {
		if s != sym && len(next) < m.limit {
			next = append(next, s)
		}
	}
	m.history = next
	return nil
}

func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	return append([]string(nil), m.history[:limit]...), nil
}

func (m *MemoryStore) ClearHistory(context.Context) error {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Preferences(context.Context) (model.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.DefaultPreferences().Merge(m.prefs), nil
}

func (m *MemoryStore) SavePreferences(_ context.Context, prefs model.Preferences) (model.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = m.prefs.Merge(prefs)
	return model.DefaultPreferences().Merge(m.prefs), nil
}

func (m *MemoryStore) RecordExport(_ context.Context, rec ExportRecord) (ExportRecord, error) {
	rec = prepareExport(rec, m.now())
	m.mu.Lock()
	m.exports[rec.ID] = rec
	m.mu.Unlock()
	return rec, nil
}

func (m *MemoryStore) Export(_ context.Context, id string) (ExportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.exports[id]
	if !ok {
		return ExportRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) ListExports(_ context.Context, limit int) ([]ExportRecord, error) {
	m.mu.Lock()
	out := make([]ExportRecord, 0, len(m.exports))
	for _, r := range m.exports {
		out = append(out, r)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
