// Package api exposes the dashboard core over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"MarketLens/internal/collector"
	"MarketLens/internal/exporter"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
	"MarketLens/internal/portfolio"
	"MarketLens/internal/store"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr         string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the repository, exporter, store and portfolio book to routes.
type Server struct {
	cfg      Config
	router   *mux.Router
	repo     *collector.Repository
	exporter *exporter.Exporter
	store    store.Store
	book     *portfolio.Book

	now func() time.Time
}

// NewServer creates a Server and registers its routes.
func NewServer(cfg Config, repo *collector.Repository, st store.Store, book *portfolio.Book) *Server {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		repo:     repo,
		exporter: exporter.New(repo),
		store:    st,
		book:     book,
		now:      time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(requestLogger)

	r.HandleFunc("/api/health", s.healthHandler).Methods("GET")

	r.HandleFunc("/api/stock/{symbol}", s.stockHandler).Methods("GET")
	r.HandleFunc("/api/crypto/popular", s.popularCryptoHandler).Methods("GET")
	r.HandleFunc("/api/crypto/{symbol}", s.cryptoHandler).Methods("GET")
	r.HandleFunc("/api/trending/stocks", s.trendingStocksHandler).Methods("GET")
	r.HandleFunc("/api/trending/crypto", s.trendingCryptoHandler).Methods("GET")
	r.HandleFunc("/api/market/indices", s.indicesHandler).Methods("GET")

	r.HandleFunc("/api/portfolio/calculate", s.calculatePortfolioHandler).Methods("POST")
	r.HandleFunc("/api/portfolios", s.listPortfoliosHandler).Methods("GET")
	r.HandleFunc("/api/portfolios/{name}", s.getPortfolioHandler).Methods("GET")
	r.HandleFunc("/api/portfolios/{name}", s.savePortfolioHandler).Methods("PUT", "POST")
	r.HandleFunc("/api/portfolios/{name}", s.deletePortfolioHandler).Methods("DELETE")

	r.HandleFunc("/api/export/stock/{symbol}", s.exportStockHandler).Methods("GET")
	r.HandleFunc("/api/export/crypto/{symbol}", s.exportCryptoHandler).Methods("GET")
	r.HandleFunc("/api/export/compare", s.exportCompareHandler).Methods("GET")
	r.HandleFunc("/api/exports", s.listExportsHandler).Methods("GET")
	r.HandleFunc("/api/exports/{id}", s.getExportHandler).Methods("GET")

	r.HandleFunc("/api/compare", s.compareHandler).Methods("GET")
	r.HandleFunc("/api/charts/compare", s.compareChartHandler).Methods("GET")
	r.HandleFunc("/api/charts/{symbol}", s.chartHandler).Methods("GET")

	r.HandleFunc("/api/history", s.historyHandler).Methods("GET")
	r.HandleFunc("/api/history", s.clearHistoryHandler).Methods("DELETE")
	r.HandleFunc("/api/preferences", s.preferencesHandler).Methods("GET")
	r.HandleFunc("/api/preferences", s.savePreferencesHandler).Methods("PUT", "POST")
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
	})
	return c.Handler(s.router)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening", "addr", s.cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an ID and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Info(r.Context(), "http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

var errBadRequest = errors.New("bad request")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, collector.ErrDataUnavailable),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, portfolio.ErrPortfolioNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidPeriod),
		errors.Is(err, portfolio.ErrInvalidHoldings):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Error marshaling JSON"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithErr logs err and writes it with its mapped status.
func respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorWithErr(r.Context(), "request failed", err, "path", r.URL.Path)
	}
	respondWithError(w, code, err.Error())
}
