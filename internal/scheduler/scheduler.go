package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"MarketLens/internal/cache"
	"MarketLens/internal/calculator"
	"MarketLens/internal/collector"
	"MarketLens/internal/exporter"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
	"MarketLens/internal/notifier"
	"MarketLens/internal/store"
)

// PurgeCron evicts expired cache entries every minute.
const PurgeCron = "0 * * * * *"

// Notifier delivers digest messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Jobs configures the scheduled watchlist work.
type Jobs struct {
	ExportCron string
	DigestCron string
	Watchlist  []string
	Period     model.Period
	ExportDir  string
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Cache    cache.Store
	Repo     *collector.Repository
	Exporter *exporter.Exporter
	Store    store.Store
	Notifier Notifier
	Jobs     Jobs
	Ctx      context.Context

	now func() time.Time
}

// NewScheduler creates a new Scheduler. A nil notifier disables digests.
func NewScheduler(ctx context.Context, c cache.Store, repo *collector.Repository, st store.Store, n Notifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Cache:    c,
		Repo:     repo,
		Exporter: exporter.New(repo),
		Store:    st,
		Notifier: n,
		Ctx:      ctx,
		now:      time.Now,
	}
}

// RegisterAll registers the cache purge and, when a watchlist is set, the
// export and digest tasks.
func (s *Scheduler) RegisterAll(jobs Jobs) error {
	if jobs.Period == "" {
		jobs.Period = model.DefaultPeriod
	}
	s.Jobs = jobs

	if _, err := s.Cron.AddFunc(PurgeCron, s.purgeCache); err != nil {
		return fmt.Errorf("register purge task: %w", err)
	}
	if len(jobs.Watchlist) == 0 {
		logger.Info(s.Ctx, "watchlist empty, export and digest tasks disabled")
		return nil
	}
	if jobs.ExportCron != "" {
		if _, err := s.Cron.AddFunc(jobs.ExportCron, func() { s.RunExportNow() }); err != nil {
			return fmt.Errorf("register export task: %w", err)
		}
	}
	if jobs.DigestCron != "" && s.Notifier != nil {
		if _, err := s.Cron.AddFunc(jobs.DigestCron, func() { s.RunDigestNow() }); err != nil {
			return fmt.Errorf("register digest task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(s.Ctx, "scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(s.Ctx, "scheduler stopped")
}

func (s *Scheduler) purgeCache() {
	n, err := s.Cache.Purge(s.Ctx)
	if err != nil {
		logger.Warn(s.Ctx, "cache purge failed", "error", err.Error())
		return
	}
	if n > 0 {
		logger.Debug(s.Ctx, "cache purged", "evicted", n)
	}
}

// RunExportNow writes one equity CSV per watchlist symbol into the export
// directory and records each file. Failed symbols are logged and skipped.
func (s *Scheduler) RunExportNow() []store.ExportRecord {
	op := logger.StartOperation(s.Ctx, "scheduler.export", "symbols", len(s.Jobs.Watchlist))
	ctx := op.Context()

	if err := os.MkdirAll(s.Jobs.ExportDir, 0755); err != nil {
		op.EndWithError(err)
		return nil
	}

	var records []store.ExportRecord
	for _, symbol := range s.Jobs.Watchlist {
		sym := model.NormalizeSymbol(symbol)
		out, err := s.Exporter.Stock(ctx, sym, s.Jobs.Period)
		if err != nil {
			logger.Warn(ctx, "scheduled export skipped", "symbol", sym, "error", err.Error())
			continue
		}
		path := filepath.Join(s.Jobs.ExportDir, exporter.Filename(exporter.KindStock, sym, s.Jobs.Period, s.now()))
		if err := os.WriteFile(path, []byte(out), 0644); err != nil {
			logger.ErrorWithErr(ctx, "write export file", err, "path", path)
			continue
		}
		rec, err := s.Store.RecordExport(ctx, store.ExportRecord{
			Symbol:   sym,
			Period:   string(s.Jobs.Period),
			Kind:     string(exporter.KindStock),
			RowCount: exporter.CountRows(out),
			ByteSize: len(out),
			Path:     path,
		})
		if err != nil {
			logger.ErrorWithErr(ctx, "record export", err, "symbol", sym)
			continue
		}
		records = append(records, rec)
	}
	op.End("written", len(records))

	if s.Notifier != nil && len(records) > 0 {
		s.trySend(notifier.FormatExportSummary(records))
	}
	return records
}

// RunDigestNow sends the watchlist digest and returns the message.
func (s *Scheduler) RunDigestNow() string {
	ctx := s.Ctx
	var entries []notifier.DigestEntry
	var failed []string
	for _, symbol := range s.Jobs.Watchlist {
		sym := model.NormalizeSymbol(symbol)
		series, err := s.Repo.Series(ctx, sym, s.Jobs.Period)
		if err != nil {
			failed = append(failed, sym)
			continue
		}
		meta, _ := s.Repo.Metadata(ctx, sym)
		metrics, ok := calculator.CalculateMetrics(series, meta)
		if !ok {
			failed = append(failed, sym)
			continue
		}
		indicators, _ := calculator.CalculateTechnicalIndicators(series)
		entries = append(entries, notifier.DigestEntry{Symbol: sym, Metrics: metrics, Indicators: indicators})
	}

	msg := notifier.FormatDigest(s.now(), entries, failed)
	if s.Notifier != nil {
		s.trySend(msg)
	}
	return msg
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logger.ErrorWithErr(s.Ctx, "send notification", err)
	}
}
