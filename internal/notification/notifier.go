// Package notification delivers operational alerts (batch summaries,
// cache outages) to external channels.
package notification

import (
	"context"
	"errors"
	"log/slog"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Event names what happened, so receivers can route without parsing text.
type Event string

const (
	EventBatchFinished    Event = "batch_finished"
	EventCacheBreakerOpen Event = "cache_breaker_open"
)

// BatchStats summarizes a finished backtest batch.
type BatchStats struct {
	Runs          int     `json:"runs"`
	Failed        int     `json:"failed"`
	Best          string  `json:"best,omitempty"` // "SYMBOL kind" of the highest final equity
	BestReturnPct float64 `json:"bestReturnPct,omitempty"`
}

// Alert represents a notification to be sent.
type Alert struct {
	Event   Event       `json:"event"`
	Level   AlertLevel  `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Batch   *BatchStats `json:"batch,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	level := slog.LevelInfo
	switch alert.Level {
	case AlertWarning:
		level = slog.LevelWarn
	case AlertCritical:
		level = slog.LevelError
	}
	slog.Log(ctx, level, "alert", "event", alert.Event, "title", alert.Title, "message", alert.Message)
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
