package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SkyrocketScreener/internal/model"
)

// SQLiteRecorder persists screening runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode
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
		`CREATE TABLE IF NOT EXISTS screen_runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER,
			timeframe   TEXT NOT NULL,
			min_price   REAL,
			max_price   REAL,
			universe    INTEGER,
			candidates  INTEGER,
			artifact    TEXT,
			status      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screen_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS screen_candidates (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id           TEXT NOT NULL REFERENCES screen_runs(id),
			rank             INTEGER NOT NULL,
			ticker           TEXT NOT NULL,
			score            INTEGER NOT NULL,
			price            REAL,
			rsi              REAL,
			atr_percent      REAL,
			short_int_pct    REAL,
			inst_own_pct     REAL,
			catalyst_pct     REAL,
			volume_surge     INTEGER,
			breakout         INTEGER,
			bb_squeeze       INTEGER,
			criteria         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_run ON screen_candidates(run_id, rank)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const criteriaSep = "; "

// RecordRun stores the run and its candidates in one transaction. An empty run ID is
// filled with a new UUID.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	status := run.Status
	if status == "" {
		status = StatusOK
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO screen_runs
		(id, started_at, duration_ms, timeframe, min_price, max_price, universe, candidates, artifact, status)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Duration.Milliseconds(), string(run.Timeframe),
		run.MinPrice, run.MaxPrice, run.Universe, len(run.Candidates), run.Artifact, status,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, c := range run.Candidates {
		b := c.Bundle
		if _, err := tx.Exec(`INSERT INTO screen_candidates
			(run_id, rank, ticker, score, price, rsi, atr_percent, short_int_pct, inst_own_pct,
			 catalyst_pct, volume_surge, breakout, bb_squeeze, criteria)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, i+1, c.Ticker, c.Score, b.CurrentPrice, b.RSI, b.ATRPercent,
			b.ShortInterestPct, b.InstOwnPct, b.CatalystPctChange,
			b.VolumeSurge, b.Breakout, b.BBSqueeze, strings.Join(c.Criteria, criteriaSep),
		); err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Ticker, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LastRun(limit int) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run       Run
		startedAt int64
		duration  int64
		tf        string
		artifact  sql.NullString
	)
	err := r.db.QueryRow(`SELECT id, started_at, duration_ms, timeframe, min_price, max_price, universe, artifact, status
		FROM screen_runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).
		Scan(&run.ID, &startedAt, &duration, &tf, &run.MinPrice, &run.MaxPrice, &run.Universe, &artifact, &run.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt = time.Unix(startedAt, 0)
	run.Duration = time.Duration(duration) * time.Millisecond
	run.Timeframe = model.Timeframe(tf)
	run.Artifact = artifact.String

	rows, err := r.db.Query(`SELECT ticker, score, price, rsi, atr_percent, short_int_pct, inst_own_pct,
			catalyst_pct, volume_surge, breakout, bb_squeeze, criteria
		FROM screen_candidates WHERE run_id = ? ORDER BY rank LIMIT ?`, run.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c := model.Candidate{Timeframe: run.Timeframe}
		b := &c.Bundle
		var criteria string
		if err := rows.Scan(&c.Ticker, &c.Score, &b.CurrentPrice, &b.RSI, &b.ATRPercent,
			&b.ShortInterestPct, &b.InstOwnPct, &b.CatalystPctChange,
			&b.VolumeSurge, &b.Breakout, &b.BBSqueeze, &criteria); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if criteria != "" {
			c.Criteria = strings.Split(criteria, criteriaSep)
		}
		run.Candidates = append(run.Candidates, c)
	}
	return &run, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
