// Package api serves the backtest service over HTTP JSON and WebSocket.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"strategy-backtester/internal/backtest"
	"strategy-backtester/internal/metrics"
	"strategy-backtester/internal/model"
	"strategy-backtester/internal/service"
	"strategy-backtester/internal/strategy"
)

// maxBodyBytes bounds request bodies; inline bars dominate the size.
const maxBodyBytes = 16 << 20

// Handler holds the dependencies of the HTTP routes.
type Handler struct {
	svc    *service.Service
	health *metrics.HealthStatus
}

// NewRouter registers all routes on a fresh mux. health may be nil.
func NewRouter(svc *service.Service, health *metrics.HealthStatus) *http.ServeMux {
	h := &Handler{svc: svc, health: health}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", h.handleHealth)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/v1/strategies", h.handleStrategies)
	mux.HandleFunc("/api/v1/backtest", h.handleBacktest)
	mux.HandleFunc("/api/v1/backtest/batch", h.handleBatch)
	mux.HandleFunc("/api/v1/runs", h.handleRuns)
	mux.HandleFunc("/api/v1/runs/", h.handleRunTrades)
	mux.HandleFunc("/api/v1/symbols", h.handleSymbols)
	mux.HandleFunc("/api/v1/bars", h.handleBars)
	mux.HandleFunc("/api/v1/indicators", h.handleIndicators)
	mux.HandleFunc("/api/v1/stats", h.handleStats)
	mux.HandleFunc("/api/v1/stream", h.handleStream)

	return mux
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// preflight writes common headers and reports whether the handler should
// continue. It answers OPTIONS and rejects methods other than allowed.
func preflight(w http.ResponseWriter, r *http.Request, allowed string) bool {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != allowed {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// StatusFor maps service and pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, backtest.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, strategy.ErrInvalidParameter), errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNoBars), errors.Is(err, model.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	SetCORS(w)
	h.health.ServeHTTP(w, r)
}

func (h *Handler) handleStrategies(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, service.Strategies())
}

func (h *Handler) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodPost) {
		return
	}
	var req service.Request
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Backtest(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type batchRequest struct {
	Requests []service.Request `json:"requests"`
}

type batchResponse struct {
	Results []service.BatchItem `json:"results"`
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodPost) {
		return
	}
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests must not be empty")
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: h.svc.Batch(r.Context(), req.Requests)})
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunTrades serves GET /api/v1/runs/{id}/trades.
func (h *Handler) handleRunTrades(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	id, tail, ok := strings.Cut(rest, "/")
	if !ok || tail != "trades" || id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	trades, err := h.svc.RunTrades(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *Handler) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	syms, err := h.svc.Symbols(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syms)
}

type importRequest struct {
	Symbol string           `json:"symbol"`
	Bars   []model.PriceBar `json:"bars"`
}

func (h *Handler) handleBars(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodPost) {
		return
	}
	var req importRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ImportBars(r.Context(), req.Symbol, req.Bars); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "symbol": req.Symbol, "count": len(req.Bars)})
}

func (h *Handler) handleIndicators(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	req := service.IndicatorRequest{Symbol: q.Get("symbol"), Specs: q.Get("specs")}
	var err error
	if req.From, err = queryInt64(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "from must be epoch millis")
		return
	}
	if req.To, err = queryInt64(q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "to must be epoch millis")
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	resp, err := h.svc.Indicators(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

func queryInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
