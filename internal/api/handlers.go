package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"MarketLens/internal/calculator"
	"MarketLens/internal/chart"
	"MarketLens/internal/collector"
	"MarketLens/internal/exporter"
	"MarketLens/internal/logger"
	"MarketLens/internal/model"
	"MarketLens/internal/portfolio"
	"MarketLens/internal/store"
)

const maxCompareSymbols = 10

var validate = validator.New()

type compareQuery struct {
	Symbols []string `validate:"min=1,max=10,dive,required"`
}

type seriesResponse struct {
	Symbol     string                    `json:"symbol"`
	Period     model.Period              `json:"period"`
	Metadata   model.IssuerMetadata      `json:"metadata"`
	Metrics    model.MetricSet           `json:"metrics"`
	Indicators model.TechnicalIndicators `json:"indicators"`
	Statistics model.PriceStatistics     `json:"statistics"`
	Bars       []model.OHLCV             `json:"bars"`
}

type cryptoResponse struct {
	seriesResponse
	AnnualizedVolatilityPct float64 `json:"annualized_volatility_pct"`
}

type calculateRequest struct {
	Holdings map[string]model.Holding `json:"holdings" validate:"required,min=1"`
	Period   string                   `json:"period"`
}

type calculateResponse struct {
	Metrics    model.PortfolioMetrics  `json:"metrics"`
	Allocation []model.AllocationSlice `json:"allocation"`
	Timeline   []model.TimelinePoint   `json:"timeline"`
	Charts     map[string]chart.Spec   `json:"charts"`
	Missing    []string                `json:"missing,omitempty"`
}

type savePortfolioRequest struct {
	Holdings map[string]model.Holding `json:"holdings" validate:"required,min=1"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"provider":  s.repo.Fetcher.Name(),
	})
}

func periodParam(r *http.Request) (model.Period, error) {
	return model.ParsePeriod(r.URL.Query().Get("period"))
}

func symbolsParam(r *http.Request) ([]string, error) {
	var symbols []string
	for _, part := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if sym := model.NormalizeSymbol(part); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	if err := validate.Struct(compareQuery{Symbols: symbols}); err != nil {
		return nil, errors.Wrapf(errBadRequest, "symbols must list 1 to %d tickers", maxCompareSymbols)
	}
	return symbols, nil
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func decodeBody(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return errors.Wrap(errBadRequest, "invalid JSON body: "+err.Error())
	}
	if err := validate.Struct(dest); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

// describe computes the headline analytics for a loaded series.
func describe(series *model.Series, meta model.IssuerMetadata) seriesResponse {
	metrics, _ := calculator.CalculateMetrics(series, meta)
	indicators, _ := calculator.CalculateTechnicalIndicators(series)
	stats, _ := calculator.CalculatePriceStatistics(series)
	return seriesResponse{
		Symbol:     series.Symbol,
		Period:     series.Period,
		Metadata:   meta,
		Metrics:    metrics,
		Indicators: indicators,
		Statistics: stats,
		Bars:       series.Bars,
	}
}

func (s *Server) stockHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := model.NormalizeSymbol(mux.Vars(r)["symbol"])
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}

	series, err := s.repo.Series(ctx, symbol, period)
	if err != nil {
		respondWithErr(w, r, errors.Wrap(err, "load stock data"))
		return
	}
	meta, err := s.repo.Metadata(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "metadata unavailable", "symbol", symbol, "error", err.Error())
	}
	if err := s.store.RecordSearch(ctx, symbol); err != nil {
		logger.Warn(ctx, "record search failed", "symbol", symbol, "error", err.Error())
	}
	respondWithJSON(w, http.StatusOK, describe(series, meta))
}

func (s *Server) cryptoHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := model.NormalizeCryptoSymbol(mux.Vars(r)["symbol"])
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}

	series, err := s.repo.CryptoSeries(ctx, symbol, period)
	if err != nil {
		respondWithErr(w, r, errors.Wrap(err, "load crypto data"))
		return
	}
	meta, _ := s.repo.Metadata(ctx, symbol)
	respondWithJSON(w, http.StatusOK, cryptoResponse{
		seriesResponse:          describe(series, meta),
		AnnualizedVolatilityPct: calculator.AnnualizedVolatility(series.Closes(), calculator.CalendarDaysPerYear),
	})
}

func (s *Server) trendingStocksHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.repo.Trending(r.Context(), collector.TrendingStocks))
}

func (s *Server) trendingCryptoHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.repo.Trending(r.Context(), collector.TrendingCryptos))
}

func (s *Server) indicesHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.repo.Indices(r.Context()))
}

func (s *Server) popularCryptoHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, collector.PopularCryptos)
}

func (s *Server) calculatePortfolioHandler(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithErr(w, r, err)
		return
	}
	period, err := model.ParsePeriod(req.Period)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	resp, err := s.analyze(r, req.Holdings, period)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// analyze validates holdings, loads their series and computes the
// portfolio views. Symbols without data are reported in Missing.
func (s *Server) analyze(r *http.Request, holdings map[string]model.Holding, period model.Period) (calculateResponse, error) {
	holdings = portfolio.NormalizeHoldings(holdings)
	if err := portfolio.ValidateHoldings(holdings); err != nil {
		return calculateResponse{}, err
	}

	symbols := make([]string, 0, len(holdings))
	for sym := range holdings {
		symbols = append(symbols, sym)
	}
	data := s.repo.Multiple(r.Context(), symbols, period)

	metrics, ok := portfolio.Analyze(holdings, data)
	if !ok {
		return calculateResponse{}, errors.Wrap(collector.ErrDataUnavailable, "no holding has market data")
	}

	var missing []string
	for _, sym := range symbols {
		if _, found := data[sym]; !found {
			missing = append(missing, sym)
		}
	}
	allocation, timeline := chart.Portfolio(holdings, data)
	resp := calculateResponse{
		Metrics:    metrics,
		Allocation: portfolio.Allocation(holdings, data),
		Timeline:   portfolio.Timeline(holdings, data),
		Charts: map[string]chart.Spec{
			"allocation": allocation,
			"timeline":   timeline,
		},
		Missing: missing,
	}
	return sanitizeTimeline(resp), nil
}

// sanitizeTimeline drops points whose return is undefined.
func sanitizeTimeline(resp calculateResponse) calculateResponse {
	kept := resp.Timeline[:0]
	for _, p := range resp.Timeline {
		if !math.IsNaN(p.ReturnPct) && !math.IsInf(p.ReturnPct, 0) {
			kept = append(kept, p)
		}
	}
	resp.Timeline = kept
	return resp
}

func (s *Server) listPortfoliosHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.book.List())
}

func (s *Server) getPortfolioHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.book.Load(mux.Vars(r)["name"])
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) savePortfolioHandler(w http.ResponseWriter, r *http.Request) {
	var req savePortfolioRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithErr(w, r, err)
		return
	}
	p, err := s.book.Save(mux.Vars(r)["name"], req.Holdings)
	if err != nil {
		respondWithErr(w, r, errors.Wrap(err, "save portfolio"))
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) deletePortfolioHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.book.Delete(mux.Vars(r)["name"]); err != nil {
		respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportStockHandler(w http.ResponseWriter, r *http.Request) {
	symbol := model.NormalizeSymbol(mux.Vars(r)["symbol"])
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	out, err := s.exporter.Stock(r.Context(), symbol, period)
	s.sendCSV(w, r, exporter.KindStock, symbol, period, out, err)
}

func (s *Server) exportCryptoHandler(w http.ResponseWriter, r *http.Request) {
	symbol := model.NormalizeCryptoSymbol(mux.Vars(r)["symbol"])
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	out, err := s.exporter.Crypto(r.Context(), symbol, period)
	s.sendCSV(w, r, exporter.KindCrypto, symbol, period, out, err)
}

func (s *Server) exportCompareHandler(w http.ResponseWriter, r *http.Request) {
	symbols, err := symbolsParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	out, err := s.exporter.Comparison(r.Context(), symbols, period)
	s.sendCSV(w, r, exporter.KindComparison, strings.Join(symbols, ","), period, out, err)
}

// sendCSV logs a successful export and writes it as an attachment.
func (s *Server) sendCSV(w http.ResponseWriter, r *http.Request, kind exporter.Kind, symbol string, period model.Period, out string, err error) {
	if err != nil {
		respondWithErr(w, r, errors.Wrapf(err, "export %s", kind))
		return
	}
	if _, err := s.store.RecordExport(r.Context(), store.ExportRecord{
		Symbol:   symbol,
		Period:   string(period),
		Kind:     string(kind),
		RowCount: exporter.CountRows(out),
		ByteSize: len(out),
	}); err != nil {
		logger.Warn(r.Context(), "record export failed", "symbol", symbol, "error", err.Error())
	}

	filename := exporter.Filename(kind, symbol, period, s.now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}

func (s *Server) listExportsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListExports(r.Context(), limitParam(r))
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (s *Server) getExportHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Export(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) chartHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := model.NormalizeSymbol(mux.Vars(r)["symbol"])
	kind, err := chart.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		respondWithErr(w, r, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	series, err := s.repo.Series(ctx, symbol, period)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	meta, _ := s.repo.Metadata(ctx, symbol)
	respondWithJSON(w, http.StatusOK, chart.Build(kind, series, model.StringOr(meta.LongName, symbol)))
}

func (s *Server) compareChartHandler(w http.ResponseWriter, r *http.Request) {
	symbols, err := symbolsParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	all := s.repo.Multiple(r.Context(), symbols, period)
	if len(all) == 0 {
		respondWithErr(w, r, errors.Wrap(collector.ErrDataUnavailable, "no series to compare"))
		return
	}
	respondWithJSON(w, http.StatusOK, chart.Comparison(all))
}

type compareResponse struct {
	Period             model.Period       `json:"period"`
	Returns            map[string]float64 `json:"returns"`
	EqualWeightReturn  float64            `json:"equal_weight_return_pct"`
	UnavailableSymbols []string           `json:"unavailable,omitempty"`
}

// compareHandler reports each symbol's first-to-last return and the
// equal-weight return across the available symbols.
func (s *Server) compareHandler(w http.ResponseWriter, r *http.Request) {
	symbols, err := symbolsParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	all := s.repo.Multiple(r.Context(), symbols, period)
	equal, ok := calculator.WeightedReturn(all, nil)
	if !ok {
		respondWithErr(w, r, errors.Wrap(collector.ErrDataUnavailable, "no series to compare"))
		return
	}

	resp := compareResponse{Period: period, Returns: make(map[string]float64, len(all)), EqualWeightReturn: equal}
	for _, sym := range symbols {
		if _, found := all[sym]; !found {
			resp.UnavailableSymbols = append(resp.UnavailableSymbols, sym)
			continue
		}
		if pct, ok := calculator.WeightedReturn(all, map[string]float64{sym: 1}); ok {
			resp.Returns[sym] = pct
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	recent, err := s.store.ListRecent(r.Context(), limitParam(r))
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	if recent == nil {
		recent = []string{}
	}
	respondWithJSON(w, http.StatusOK, recent)
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearHistory(r.Context()); err != nil {
		respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) preferencesHandler(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.Preferences(r.Context())
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs)
}

func (s *Server) savePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	var prefs model.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondWithErr(w, r, errors.Wrap(errBadRequest, "invalid JSON body: "+err.Error()))
		return
	}
	merged, err := s.store.SavePreferences(r.Context(), prefs)
	if err != nil {
		respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, merged)
}
