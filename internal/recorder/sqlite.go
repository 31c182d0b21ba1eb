package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"BhavSentinel/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists bars and runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers query history while a batch is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_bars (
			symbol       TEXT NOT NULL,
			series       TEXT NOT NULL,
			session_date TEXT NOT NULL,
			open         REAL NOT NULL,
			high         REAL NOT NULL,
			low          REAL NOT NULL,
			close        REAL NOT NULL,
			last_price   REAL NOT NULL,
			prev_close   REAL NOT NULL,
			volume       INTEGER NOT NULL,
			value        REAL NOT NULL,
			trades       INTEGER NOT NULL,
			PRIMARY KEY (symbol, session_date)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			source           TEXT,
			started_at       INTEGER NOT NULL,
			finished_at      INTEGER NOT NULL,
			file_name        TEXT,
			processed_at     INTEGER,
			total_records    INTEGER,
			valid_records    INTEGER,
			filtered_records INTEGER,
			processing_ms    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS run_results (
			run_id      TEXT NOT NULL REFERENCES runs(id),
			position    INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			technical   REAL,
			fundamental REAL,
			sentiment   REAL,
			final       REAL,
			strength    TEXT,
			confidence  REAL,
			reasons     TEXT,
			error       TEXT,
			PRIMARY KEY (run_id, symbol)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) SaveBars(ctx context.Context, bars []model.PriceBar) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_bars
		(symbol, series, session_date, open, high, low, close, last_price, prev_close, volume, value, trades)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, session_date) DO UPDATE SET
			series=excluded.series, open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, last_price=excluded.last_price, prev_close=excluded.prev_close,
			volume=excluded.volume, value=excluded.value, trades=excluded.trades`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		p, t := b.PriceData, b.TradingData
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.Series, b.Timestamp.UTC().Format(dateLayout),
			p.Open, p.High, p.Low, p.Close, p.Last, p.PreviousClose,
			t.Volume, t.Value, t.Trades,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", b.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LoadSeries(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		series, session_date, open, high, low, close, last_price, prev_close, volume, value, trades
		FROM price_bars WHERE symbol = ? ORDER BY session_date DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		b := model.PriceBar{Symbol: symbol}
		var day string
		p, t := &b.PriceData, &b.TradingData
		if err := rows.Scan(&b.Series, &day, &p.Open, &p.High, &p.Low, &p.Close, &p.Last, &p.PreviousClose,
			&t.Volume, &t.Value, &t.Trades); err != nil {
			return nil, fmt.Errorf("scan %s: %w", symbol, err)
		}
		if b.Timestamp, err = time.ParseInLocation(dateLayout, day, time.UTC); err != nil {
			return nil, fmt.Errorf("parse session date %q: %w", day, err)
		}
		b.Metrics = model.DeriveMetrics(b.PriceData, b.TradingData)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	md := run.Metadata
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs
		(id, source, started_at, finished_at, file_name, processed_at, total_records, valid_records, filtered_records, processing_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Source, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		md.FileName, md.ProcessedAt.UnixMilli(), md.TotalRecords, md.ValidRecords, md.FilteredRecords, md.ProcessingTimeMs,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for _, res := range run.Results {
		reasons, err := json.Marshal(res.Recommendation.Reasons)
		if err != nil {
			return fmt.Errorf("marshal reasons: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_results
			(run_id, position, symbol, technical, fundamental, sentiment, final, strength, confidence, reasons, error)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, res.Rank, res.Symbol, res.TechnicalScore, res.FundamentalScore, res.SentimentScore,
			res.FinalScore, string(res.Recommendation.Strength), res.Recommendation.Confidence,
			string(reasons), res.Error,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", res.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LatestRun(ctx context.Context) (*RunRecord, error) {
	run := &RunRecord{}
	var started, finished, processed int64
	md := &run.Metadata
	err := r.db.QueryRowContext(ctx, `SELECT
		id, source, started_at, finished_at, file_name, processed_at, total_records, valid_records, filtered_records, processing_ms
		FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(
		&run.ID, &run.Source, &started, &finished,
		&md.FileName, &processed, &md.TotalRecords, &md.ValidRecords, &md.FilteredRecords, &md.ProcessingTimeMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	run.StartedAt = time.UnixMilli(started).UTC()
	run.FinishedAt = time.UnixMilli(finished).UTC()
	md.ProcessedAt = time.UnixMilli(processed).UTC()

	rows, err := r.db.QueryContext(ctx, `SELECT
		position, symbol, technical, fundamental, sentiment, final, strength, confidence, reasons, error
		FROM run_results WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("query results %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			res      model.ScoreBreakdown
			strength string
			reasons  string
		)
		if err := rows.Scan(&res.Rank, &res.Symbol, &res.TechnicalScore, &res.FundamentalScore,
			&res.SentimentScore, &res.FinalScore, &strength, &res.Recommendation.Confidence,
			&reasons, &res.Error); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Recommendation.Strength = model.Strength(strength)
		if err := json.Unmarshal([]byte(reasons), &res.Recommendation.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons for %s: %w", res.Symbol, err)
		}
		run.Results = append(run.Results, res)
	}
	return run, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
