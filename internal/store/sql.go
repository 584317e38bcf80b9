package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"MarketLens/internal/logger"
	"MarketLens/internal/model"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore persists to SQLite or PostgreSQL through sqlx. Queries are
// written with ? placeholders and rebound per driver.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	limit  int
	mu     sync.Mutex
	now    func() time.Time
}

type exportRow struct {
	ExportRecord
	CreatedAtUnix int64 `db:"created_at"`
}

// NewSQLStore opens (or creates) the database and runs migrations.
func NewSQLStore(ctx context.Context, driver, dsn string, historyLimit int) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// A single connection serialises writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &SQLStore{db: db, driver: driver, limit: historyLimitOr(historyLimit), now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(ctx, "store opened", "driver", driver)
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS search_history (
			symbol      TEXT PRIMARY KEY,
			seq         BIGINT NOT NULL,
			searched_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_seq ON search_history(seq)`,

		`CREATE TABLE IF NOT EXISTS preferences (
			pref_key   TEXT PRIMARY KEY,
			pref_value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS exports (
			id         TEXT PRIMARY KEY,
			symbol     TEXT NOT NULL,
			period     TEXT NOT NULL,
			kind       TEXT NOT NULL,
			row_count  INTEGER NOT NULL,
			byte_size  INTEGER NOT NULL,
			path       TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exports_created ON exports(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLStore) RecordSearch(ctx context.Context, symbol string) error {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := s.db.Rebind(`INSERT INTO search_history (symbol, seq, searched_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM search_history), ?)
		ON CONFLICT (symbol) DO UPDATE SET seq = excluded.seq, searched_at = excluded.searched_at`)
	if _, err := tx.ExecContext(ctx, upsert, sym, s.now().Unix()); err != nil {
		return fmt.Errorf("record search: %w", err)
	}

	trim := s.db.Rebind(`DELETE FROM search_history WHERE symbol NOT IN (
		SELECT symbol FROM search_history ORDER BY seq DESC LIMIT ?)`)
	if _, err := tx.ExecContext(ctx, trim, s.limit); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) ListRecent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	var symbols []string
	q := s.db.Rebind(`SELECT symbol FROM search_history ORDER BY seq DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &symbols, q, limit); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return symbols, nil
}

func (s *SQLStore) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	return err
}

func (s *SQLStore) Preferences(ctx context.Context) (model.Preferences, error) {
	var rows []struct {
		Key   string `db:"pref_key"`
		Value string `db:"pref_value"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT pref_key, pref_value FROM preferences`); err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	stored := make(model.Preferences, len(rows))
	for _, r := range rows {
		stored[r.Key] = r.Value
	}
	return model.DefaultPreferences().Merge(stored), nil
}

func (s *SQLStore) SavePreferences(ctx context.Context, prefs model.Preferences) (model.Preferences, error) {
	s.mu.Lock()
	err := s.savePreferences(ctx, prefs)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Preferences(ctx)
}

func (s *SQLStore) savePreferences(ctx context.Context, prefs model.Preferences) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := s.db.Rebind(`INSERT INTO preferences (pref_key, pref_value) VALUES (?, ?)
		ON CONFLICT (pref_key) DO UPDATE SET pref_value = excluded.pref_value`)
	for k, v := range prefs {
		if _, err := tx.ExecContext(ctx, q, k, v); err != nil {
			return fmt.Errorf("save preference %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) RecordExport(ctx context.Context, rec ExportRecord) (ExportRecord, error) {
	rec = prepareExport(rec, s.now())
	row := exportRow{ExportRecord: rec, CreatedAtUnix: rec.CreatedAt.UnixNano()}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO exports
		(id, symbol, period, kind, row_count, byte_size, path, created_at)
		VALUES (:id, :symbol, :period, :kind, :row_count, :byte_size, :path, :created_at)`, row)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("record export: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) Export(ctx context.Context, id string) (ExportRecord, error) {
	var row exportRow
	q := s.db.Rebind(`SELECT id, symbol, period, kind, row_count, byte_size, path, created_at
		FROM exports WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExportRecord{}, ErrNotFound
		}
		return ExportRecord{}, err
	}
	return row.record(), nil
}

func (s *SQLStore) ListExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []exportRow
	q := s.db.Rebind(`SELECT id, symbol, period, kind, row_count, byte_size, path, created_at
		FROM exports ORDER BY created_at DESC, id LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	out := make([]ExportRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (r exportRow) record() ExportRecord {
	rec := r.ExportRecord
	rec.CreatedAt = time.Unix(0, r.CreatedAtUnix).UTC()
	return rec
}

func (s *SQLStore) Close() error {
	logger.Info(context.Background(), "closing store", "driver", s.driver)
	return s.db.Close()
}
