package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"strategy-backtester/internal/backtest"
	"strategy-backtester/internal/metrics"
	"strategy-backtester/internal/model"
	"strategy-backtester/internal/service"
	"strategy-backtester/internal/store/sqlite"
	"strategy-backtester/internal/strategy"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const day = int64(86_400_000)

func rising(n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.PriceBar{TS: int64(i+1) * day, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.WriteBars(context.Background(), "ACME", rising(40)); err != nil {
		t.Fatal(err)
	}

	svc := service.New(service.Options{
		Bars:    store,
		Writer:  store,
		Runs:    store,
		Metrics: metrics.NewMetrics(prometheus.NewRegistry()),
		MaxBars: 1000,
	})
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)
	return NewRouter(svc, health)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

// ─── Backtest ───

func TestBacktest_OK(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/v1/backtest", service.Request{
		Symbol:   "ACME",
		Strategy: service.StrategySpec{Kind: "momentum", Params: map[string]float64{"period": 5}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}

	var resp service.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != "momentum" || len(resp.Result.EquityCurve) != 39 {
		t.Errorf("unexpected response: kind=%s curve=%d", resp.Kind, len(resp.Result.EquityCurve))
	}

	runs := do(t, h, http.MethodGet, "/api/v1/runs?limit=5", nil)
	var recs []model.RunRecord
	if err := json.NewDecoder(runs.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != resp.RunID {
		t.Errorf("run history = %+v", recs)
	}

	tr := do(t, h, http.MethodGet, "/api/v1/runs/"+resp.RunID+"/trades", nil)
	if tr.Code != http.StatusOK {
		t.Fatalf("trades status = %d, body = %s", tr.Code, tr.Body.String())
	}
	var trades []model.Trade
	if err := json.NewDecoder(tr.Body).Decode(&trades); err != nil {
		t.Fatal(err)
	}
	if len(trades) != len(resp.Result.Trades) {
		t.Errorf("journal has %d trades, result has %d", len(trades), len(resp.Result.Trades))
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/runs/nope/trades", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown run status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("bare run path status = %d", rec.Code)
	}
}

func TestSymbols(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/symbols", nil)
	var syms []string
	if err := json.NewDecoder(rec.Body).Decode(&syms); err != nil {
		t.Fatal(err)
	}
	if len(syms) != 1 || syms[0] != "ACME" {
		t.Errorf("symbols = %v", syms)
	}
}

func TestBacktest_ErrorMapping(t *testing.T) {
	h := newTestRouter(t)
	cases := []struct {
		name string
		body any
		want int
	}{
		{"insufficient", service.Request{Bars: rising(10), Strategy: service.StrategySpec{Kind: "macd"}}, http.StatusUnprocessableEntity},
		{"invalid param", service.Request{Symbol: "ACME", Strategy: service.StrategySpec{Kind: "sma_cross", Params: map[string]float64{"fast": 5, "slow": 5}}}, http.StatusBadRequest},
		{"unknown symbol", service.Request{Symbol: "NOPE", Strategy: service.StrategySpec{Kind: "macd"}}, http.StatusNotFound},
		{"bad json", "{", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/backtest", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			if errorBody(t, rec) == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestBacktest_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(t)
	if rec := do(t, h, http.MethodGet, "/api/v1/backtest", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodOptions, "/api/v1/backtest", nil); rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&backtest.InsufficientDataError{Bars: 3, Min: 20}, http.StatusUnprocessableEntity},
		{&strategy.InvalidParameterError{Kind: "macd", Param: "fast", Reason: "x"}, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", service.ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("sqlite: %w", model.ErrNoBars), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

// ─── Batch ───

func TestBatch(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/v1/backtest/batch", map[string]any{
		"requests": []service.Request{
			{Symbol: "ACME", Strategy: service.StrategySpec{Kind: "breakout"}},
			{Symbol: "ACME", Strategy: service.StrategySpec{Kind: "nope"}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []struct {
			Response *service.Response `json:"response"`
			Error    string            `json:"error"`
		} `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	if resp.Results[0].Response == nil || resp.Results[0].Error != "" {
		t.Errorf("item 0: %+v", resp.Results[0])
	}
	if resp.Results[1].Response != nil || !strings.Contains(resp.Results[1].Error, "unknown kind") {
		t.Errorf("item 1: %+v", resp.Results[1])
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/backtest/batch", map[string]any{"requests": []any{}}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d", rec.Code)
	}
}

// ─── Discovery and data ───

func TestStrategies(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/strategies", nil)
	var infos []service.StrategyInfo
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 5 {
		t.Fatalf("kinds = %d", len(infos))
	}
	if infos[0].Kind != "sma_cross" || infos[0].Defaults["slow"] != 30 {
		t.Errorf("first kind = %+v", infos[0])
	}
}

func TestImportBarsThenBacktest(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/v1/bars", map[string]any{"symbol": "NEW", "bars": rising(25)})
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/api/v1/backtest", service.Request{Symbol: "NEW", Strategy: service.StrategySpec{Kind: "breakout"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("backtest status = %d, body = %s", rec.Code, rec.Body.String())
	}

	bad := rising(25)
	bad[0].Low = bad[0].Open + 5
	rec = do(t, h, http.MethodPost, "/api/v1/bars", map[string]any{"symbol": "BAD", "bars": bad})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad bars status = %d", rec.Code)
	}
}

func TestIndicators(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/indicators?symbol=ACME&specs=SMA:5,EMA:3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Timestamps []int64               `json:"timestamps"`
		Series     map[string][]*float64 `json:"series"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	sma := resp.Series["SMA:5"]
	if len(sma) != 40 || sma[3] != nil || sma[4] == nil || *sma[4] != 102 {
		t.Errorf("SMA:5 warm-up or value wrong: %v", sma[:6])
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/indicators?specs=SMA:5", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing symbol status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/indicators?symbol=ACME&from=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d", rec.Code)
	}
}

func TestRuns_BadLimit(t *testing.T) {
	h := newTestRouter(t)
	if rec := do(t, h, http.MethodGet, "/api/v1/runs?limit=-1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	for _, path := range []string{"/api/v1/health", "/healthz"} {
		rec := do(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		var body map[string]any
		json.NewDecoder(rec.Body).Decode(&body)
		if body["status"] != "healthy" {
			t.Errorf("%s body = %v", path, body)
		}
	}
}

// ─── Stream ───

func TestStream(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(service.Request{Symbol: "ACME", Strategy: service.StrategySpec{Kind: "breakout", Params: map[string]float64{"lookback": 5}}}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(service.Request{Bars: rising(5), Strategy: service.StrategySpec{Kind: "breakout"}}); err != nil {
		t.Fatal(err)
	}

	var first, second StreamMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if first.Type != "result" || first.Seq != 1 || first.Result == nil || first.Result.Kind != "breakout" {
		t.Errorf("first = %+v", first)
	}
	if second.Type != "error" || second.Seq != 2 || second.Status != http.StatusUnprocessableEntity {
		t.Errorf("second = %+v", second)
	}
}
