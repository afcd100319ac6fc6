package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	_ "modernc.org/sqlite"

	"StrengthSentinel/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id               TEXT NOT NULL,
			source               TEXT,
			timestamp            INTEGER NOT NULL,
			symbol               TEXT NOT NULL,
			benchmark            TEXT NOT NULL,
			segment              TEXT,
			period_start         TEXT,
			period_end           TEXT,
			as_of                TEXT,
			data_points          INTEGER,
			price                REAL,
			index_value          REAL,
			rs_ratio             REAL,
			rs_normalized        REAL,
			rs_ma5               REAL,
			rs_ma10              REAL,
			rs_ma20              REAL,
			change_1d            REAL,
			change_5d            REAL,
			change_20d           REAL,
			strength_level       TEXT,
			strength_score       REAL,
			trend                TEXT,
			trend_score          INTEGER,
			volatility           TEXT,
			volatility_value     REAL,
			recommendation       TEXT,
			recommendation_score INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol_ts ON analyses(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS failures (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			source    TEXT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT,
			benchmark TEXT,
			kind      TEXT,
			message   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON failures(timestamp)`,

		`CREATE TABLE IF NOT EXISTS watch_changes (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              TEXT NOT NULL,
			timestamp           INTEGER NOT NULL,
			symbol              TEXT NOT NULL,
			from_trend          TEXT,
			to_trend            TEXT,
			from_recommendation TEXT,
			to_recommendation   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watch_changes_ts ON watch_changes(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(s)[:40], err)
		}
	}
	return nil
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Unix()
}

// nullable maps undefined indicator values to SQL NULL.
func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (r *SQLiteRecorder) RecordAnalysis(rec *AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := rec.Bundle
	a := b.Analysis
	_, err := r.db.Exec(`INSERT INTO analyses
		(run_id, source, timestamp, symbol, benchmark, segment, period_start, period_end, as_of,
		 data_points, price, index_value, rs_ratio, rs_normalized, rs_ma5, rs_ma10, rs_ma20,
		 change_1d, change_5d, change_20d,
		 strength_level, strength_score, trend, trend_score,
		 volatility, volatility_value, recommendation, recommendation_score)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Source, stamp(rec.RecordedAt), b.Symbol, b.Benchmark.ID, string(b.Segment),
		b.Period.Start.String(), b.Period.End.String(), b.Latest.Date.String(),
		b.DataPoints, b.Latest.Price, b.Latest.IndexValue, b.Latest.Ratio, b.Latest.Normalized,
		nullable(b.Latest.MA5), nullable(b.Latest.MA10), nullable(b.Latest.MA20),
		nullable(b.Momentum.Change1D), nullable(b.Momentum.Change5D), nullable(b.Momentum.Change20D),
		string(a.StrengthLevel), a.StrengthScore, string(a.Trend), a.TrendScore,
		string(a.Volatility), a.VolatilityValue, string(a.Recommendation), a.RecommendationScore,
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(rec *FailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO failures
		(run_id, source, timestamp, symbol, benchmark, kind, message)
		VALUES (?,?,?,?,?,?,?)`,
		rec.RunID, rec.Source, stamp(rec.RecordedAt), rec.Symbol, rec.Benchmark,
		string(rec.Kind), rec.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecordChange(rec *ChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO watch_changes
		(run_id, timestamp, symbol, from_trend, to_trend, from_recommendation, to_recommendation)
		VALUES (?,?,?,?,?,?,?)`,
		rec.RunID, stamp(rec.RecordedAt), rec.Symbol,
		string(rec.FromTrend), string(rec.ToTrend),
		string(rec.FromRecommendation), string(rec.ToRecommendation),
	)
	return err
}

// History returns the latest recorded analyses for symbol, newest first.
func (r *SQLiteRecorder) History(symbol string, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT run_id, timestamp, symbol, benchmark, as_of, rs_normalized, trend, recommendation
		FROM analyses WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		var ts int64
		var trend, rec string
		if err := rows.Scan(&h.RunID, &ts, &h.Symbol, &h.Benchmark, &h.AsOf, &h.Normalized, &trend, &rec); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.RecordedAt = time.Unix(ts, 0)
		h.Trend, h.Recommendation = model.Trend(trend), model.Recommendation(rec)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
