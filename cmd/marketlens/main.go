package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"MarketLens/internal/api"
	"MarketLens/internal/cache"
	"MarketLens/internal/collector"
	"MarketLens/internal/config"
	"MarketLens/internal/exporter"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
	"MarketLens/internal/notifier"
	"MarketLens/internal/portfolio"
	"MarketLens/internal/scheduler"
	"MarketLens/internal/store"
)

const usage = `usage: marketlens [serve] | export -symbol SYM [-kind stock|crypto|compare] [-period 1y] [-out file.csv]`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "marketlens:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Tracing: cfg.Log.Tracing}
	if cmd == "export" {
		// stdout carries the CSV
		logCfg.Output = os.Stderr
	}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logger.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return serve(ctx, cfg)
	case "export":
		return export(ctx, cfg, args)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	if cfg.DataSource.Provider == "rest" {
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.Timeout)
	}
	return collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout)
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Backend == "redis" {
		rs, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   "marketlens:",
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return cache.NewMemoryStore(), nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	dsn := cfg.Store.DSN
	if cfg.Store.Driver == "sqlite" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return store.Open(ctx, cfg.Store.Driver, dsn, cfg.Store.HistoryLimit)
}

// openCore builds the cache-backed repository and the store shared by both modes.
func openCore(ctx context.Context, cfg *config.Config) (cache.Store, *collector.Repository, store.Store, error) {
	fetcher := newFetcher(cfg)
	logger.Info(ctx, "data source selected", "provider", fetcher.Name())

	c, err := newCache(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init cache: %w", err)
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, nil, nil, fmt.Errorf("init store: %w", err)
	}
	repo := collector.NewRepository(fetcher, c, cfg.Cache.SeriesTTL, cfg.Cache.MetadataTTL)
	return c, repo, st, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Info(ctx, "MarketLens starting")

	c, repo, st, err := openCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	defer st.Close()

	book, err := portfolio.NewBook(cfg.Portfolio.BookFile)
	if err != nil {
		return fmt.Errorf("init portfolio book: %w", err)
	}

	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		n = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	sched := scheduler.NewScheduler(ctx, c, repo, st, n)
	if err := sched.RegisterAll(scheduler.Jobs{
		ExportCron: cfg.Export.Cron,
		DigestCron: cfg.Telegram.DigestCron,
		Watchlist:  cfg.Export.Watchlist,
		Period:     model.Period(cfg.Export.Period),
		ExportDir:  cfg.Export.Dir,
	}); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info(ctx, "RUN_ON_START enabled, exporting watchlist now")
		go sched.RunExportNow()
	}

	srv := api.NewServer(api.Config{
		Addr:         cfg.Server.Addr,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, repo, st, book)
	err = srv.Run(ctx)
	logger.Info(ctx, "MarketLens stopped")
	return err
}

func export(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	symbol := fs.String("symbol", "", "ticker, or comma-separated tickers for -kind compare")
	periodFlag := fs.String("period", string(model.DefaultPeriod), "history range")
	kindFlag := fs.String("kind", "stock", "stock, crypto or compare")
	out := fs.String("out", "", "output file; empty writes to stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*symbol) == "" {
		return fmt.Errorf("-symbol is required\n%s", usage)
	}
	period, err := model.ParsePeriod(*periodFlag)
	if err != nil {
		return err
	}
	kind, err := exporter.ParseKind(*kindFlag)
	if err != nil {
		return err
	}

	c, repo, st, err := openCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	defer st.Close()

	exp := exporter.New(repo)
	var csv string
	switch kind {
	case exporter.KindCrypto:
		csv, err = exp.Crypto(ctx, *symbol, period)
	case exporter.KindComparison:
		csv, err = exp.Comparison(ctx, strings.Split(*symbol, ","), period)
	default:
		csv, err = exp.Stock(ctx, *symbol, period)
	}
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, csv); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if _, err := st.RecordExport(ctx, store.ExportRecord{
		Symbol:   *symbol,
		Period:   string(period),
		Kind:     string(kind),
		RowCount: exporter.CountRows(csv),
		ByteSize: len(csv),
		Path:     *out,
	}); err != nil {
		logger.Warn(ctx, "record export failed", "error", err.Error())
	}
	return nil
}
