package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"strategy-backtester/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// maxRuns bounds the run history table.
const maxRuns = 1000

// Store is the SQLite-backed bar source and run history.
// A single connection serializes writers; WAL keeps reads cheap.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database at dbPath and ensures the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite opened", "path", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol  TEXT    NOT NULL,
			ts      INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  REAL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id               TEXT    PRIMARY KEY,
			symbol           TEXT    NOT NULL,
			kind             TEXT    NOT NULL,
			params           TEXT    NOT NULL,
			bars             INTEGER NOT NULL,
			from_ts          INTEGER NOT NULL,
			to_ts            INTEGER NOT NULL,
			num_trades       INTEGER NOT NULL,
			total_return_pct REAL    NOT NULL,
			sharpe           REAL    NOT NULL,
			max_drawdown_pct REAL    NOT NULL,
			created_at       INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created ON backtest_runs (created_at);

		CREATE TABLE IF NOT EXISTS backtest_trades (
			run_id      TEXT    NOT NULL,
			seq         INTEGER NOT NULL,
			entry_time  INTEGER NOT NULL,
			exit_time   INTEGER NOT NULL,
			entry_price REAL    NOT NULL,
			exit_price  REAL    NOT NULL,
			pnl         REAL    NOT NULL,
			return_pct  REAL    NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}

// WriteBars upserts bars for symbol in a single transaction.
func (s *Store) WriteBars(ctx context.Context, symbol string, bars []model.PriceBar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare bars: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.TS, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar %d: %w", b.TS, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit bars: %w", err)
	}
	return nil
}

// SaveRun records a completed backtest with its trade journal and prunes
// history beyond maxRuns.
func (s *Store) SaveRun(ctx context.Context, rec model.RunRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, symbol, kind, params, bars, from_ts, to_ts,
			num_trades, total_return_pct, sharpe, max_drawdown_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Symbol, rec.Kind, string(params), rec.Bars, rec.FromTS, rec.ToTS,
		rec.NumTrades, rec.TotalReturnPct, rec.Sharpe, rec.MaxDrawdownPct, rec.CreatedAt.UnixMilli())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite insert run: %w", err)
	}

	if len(rec.Trades) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO backtest_trades (run_id, seq, entry_time, exit_time,
				entry_price, exit_price, pnl, return_pct)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite prepare trades: %w", err)
		}
		defer stmt.Close()
		for i, t := range rec.Trades {
			if _, err := stmt.ExecContext(ctx, rec.ID, i, t.EntryTime, t.ExitTime,
				t.EntryPrice, t.ExitPrice, t.PnL, t.ReturnPct); err != nil {
				tx.Rollback()
				return fmt.Errorf("sqlite insert trade %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit run: %w", err)
	}

	if err := s.prune(ctx); err != nil {
		slog.Warn("sqlite prune runs failed", "error", err)
	}
	return nil
}

func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM backtest_runs WHERE id NOT IN (
			SELECT id FROM backtest_runs ORDER BY created_at DESC LIMIT ?
		)`, maxRuns)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM backtest_trades WHERE run_id NOT IN (SELECT id FROM backtest_runs)`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
