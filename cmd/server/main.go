// cmd/server runs the backtest HTTP API with Prometheus metrics, SQLite bar
// storage, and an optional Redis result cache.
//
// Usage:
//
//	SQLITE_PATH=data/bars.db REDIS_ADDR=localhost:6379 go run ./cmd/server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"strategy-backtester/config"
	"strategy-backtester/internal/api"
	"strategy-backtester/internal/logger"
	"strategy-backtester/internal/metrics"
	"strategy-backtester/internal/notification"
	"strategy-backtester/internal/service"
	redisstore "strategy-backtester/internal/store/redis"
	sqlitestore "strategy-backtester/internal/store/sqlite"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "backtest-server"

func main() {
	cfg := config.Load()
	logger.Init(serviceName, logger.ParseLevel(cfg.LogLevel))
	slog.Info("starting", "http_addr", cfg.HTTPAddr, "metrics_addr", cfg.MetricsAddr)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// ---- Metrics & health ----
	prom := metrics.NewMetrics(prometheus.DefaultRegisterer)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Alerts ----
	notifier := buildNotifier(cfg)

	// ---- SQLite ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()
	health.SetSQLiteOK(true)

	opts := service.Options{
		Bars:     store,
		Writer:   store,
		Runs:     store,
		Metrics:  prom,
		Notifier: notifier,
		MaxBars:  cfg.MaxBars,
		Workers:  cfg.BatchWorkers,
	}

	// ---- Redis result cache (optional) ----
	var rdb *goredis.Client
	if cfg.CacheEnabled() {
		health.SetRedisEnabled(true)
		cache, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			slog.Warn("redis init failed, continuing without result cache", "error", err)
		} else {
			defer cache.Close()
			rdb = cache.Client()
			health.CheckRedis(ctx, rdb)
			watchBreaker(cache.Breaker(), prom, notifier)
			opts.Cache = cache
		}
	}

	health.StartLivenessChecker(ctx, rdb, store.DB(), 10*time.Second)

	// ---- HTTP API ----
	svc := service.New(opts)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(svc, health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	metricsSrv.Stop(shutdownCtx)
	slog.Info("stopped")
	return nil
}

// buildNotifier returns the configured alert channels, or nil when none are.
func buildNotifier(cfg *config.Config) notification.Notifier {
	var multi notification.Multi
	if cfg.WebhookURL != "" {
		multi = append(multi, notification.NewWebhookNotifier(cfg.WebhookURL, serviceName))
	}
	if cfg.TelegramEnabled() {
		multi = append(multi, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if len(multi) == 0 {
		return nil
	}
	return append(multi, notification.NewLogNotifier())
}

// watchBreaker mirrors cache breaker transitions into metrics and alerts.
func watchBreaker(cb *redisstore.CircuitBreaker, prom *metrics.Metrics, notifier notification.Notifier) {
	cb.OnStateChange = func(from, to redisstore.State) {
		prom.RedisCircuitBreakerState.Set(float64(to))
		slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
		if to != redisstore.StateOpen {
			return
		}
		prom.RedisCircuitBreakerTrips.Inc()
		if notifier == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			alert := notification.Alert{
				Event:   notification.EventCacheBreakerOpen,
				Level:   notification.AlertWarning,
				Title:   "Result cache unavailable",
				Message: "Redis circuit breaker opened; backtests run uncached",
			}
			if err := notifier.Send(ctx, alert); err != nil {
				slog.Warn("breaker notification failed", "error", err)
			}
		}()
	}
}
