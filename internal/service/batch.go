package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"strategy-backtester/internal/notification"
)

const notifyTimeout = 10 * time.Second

// BatchItem is the outcome of one request in a batch. Exactly one of
// Response and Error is set.
type BatchItem struct {
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`

	Err error `json:"-"`
}

// Batch runs reqs on a bounded worker pool. Results keep request order and
// a failing request does not affect the others. Requests not yet started
// when ctx is cancelled fail with ctx.Err().
func (s *Service) Batch(ctx context.Context, reqs []Request) []BatchItem {
	out := make([]BatchItem, len(reqs))
	if len(reqs) == 0 {
		return out
	}

	workers := s.workers
	if workers > len(reqs) {
		workers = len(reqs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.runItem(ctx, reqs[i])
			}
		}()
	}

feed:
	for i := range reqs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(reqs); j++ {
				out[j] = BatchItem{Err: ctx.Err(), Error: ctx.Err().Error()}
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if s.notify != nil {
		go s.notifyBatch(summarize(out))
	}
	return out
}

// batchSummary condenses a finished batch for alerting.
type batchSummary struct {
	total, failed int
	best          string
	bestEquity    float64
	bestReturn    float64
}

// summarize ranks successful runs by final equity multiplier.
func summarize(items []BatchItem) batchSummary {
	sum := batchSummary{total: len(items), bestEquity: math.Inf(-1)}
	for _, it := range items {
		if it.Err != nil {
			sum.failed++
			continue
		}
		res := it.Response.Result
		if eq := res.FinalEquity(); eq > sum.bestEquity {
			sum.bestEquity = eq
			sum.bestReturn = res.Metrics.TotalReturnPct
			sum.best = it.Response.Symbol + " " + it.Response.Kind
		}
	}
	return sum
}

func (s *Service) notifyBatch(sum batchSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	alert := notification.Alert{
		Event: notification.EventBatchFinished,
		Level: notification.AlertInfo,
		Title: "Backtest batch finished",
		Batch: &notification.BatchStats{
			Runs:          sum.total,
			Failed:        sum.failed,
			Best:          sum.best,
			BestReturnPct: sum.bestReturn,
		},
	}
	if sum.failed > 0 {
		alert.Level = notification.AlertWarning
	}
	alert.Message = fmt.Sprintf("%d runs, %d failed", sum.total, sum.failed)
	if sum.best != "" {
		alert.Message += fmt.Sprintf(", best %s at %.2f%%", sum.best, sum.bestReturn)
	}
	if err := s.notify.Send(ctx, alert); err != nil {
		slog.Warn("batch notification failed", "error", err)
	}
}

// runItem runs one request. A panic is contained to its own item so a
// worker goroutine never takes the process down.
func (s *Service) runItem(ctx context.Context, req Request) (item BatchItem) {
	if err := ctx.Err(); err != nil {
		return BatchItem{Err: err, Error: err.Error()}
	}
	s.m.BatchInFlight.Inc()
	defer s.m.BatchInFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("batch item panicked", "symbol", req.Symbol, "kind", req.Strategy.Kind, "panic", r)
			err := fmt.Errorf("backtest aborted: %v", r)
			item = BatchItem{Err: err, Error: err.Error()}
		}
	}()

	resp, err := s.Backtest(ctx, req)
	if err != nil {
		return BatchItem{Err: err, Error: err.Error()}
	}
	return BatchItem{Response: resp}
}
