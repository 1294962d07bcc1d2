// Package store persists scout runs and caches infrastructure snapshots in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sitescout/internal/model"
)

// RunFilter narrows ListRuns.
type RunFilter struct {
	SessionID string
	Kind      model.RunKind
	Status    model.RunStatus
	Limit     int
	Offset    int
}

// SQLiteStore persists scout runs using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scout_runs (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	query       TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	candidates  TEXT,
	sub_markets TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshot_cache (
	id         TEXT PRIMARY KEY,
	apn        TEXT NOT NULL,
	snapshot   TEXT NOT NULL,
	built_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scout_runs_session ON scout_runs(session_id);
CREATE INDEX IF NOT EXISTS idx_scout_runs_status ON scout_runs(status);
CREATE INDEX IF NOT EXISTS idx_snapshot_cache_apn ON snapshot_cache(apn);
CREATE INDEX IF NOT EXISTS idx_snapshot_cache_expires_at ON snapshot_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun records a new in-flight pipeline run.
func (s *SQLiteStore) CreateRun(ctx context.Context, sessionID string, kind model.RunKind, query string) (*model.ScoutRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scout_runs (id, session_id, kind, query, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, string(kind), query, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.ScoutRun{
		ID:        id,
		SessionID: sessionID,
		Kind:      kind,
		Query:     query,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteRun stores the finished ranked results.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, candidates []model.RankedCandidate, subMarkets []model.SubMarketCandidate) error {
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal candidates")
	}
	subMarketsJSON, err := json.Marshal(subMarkets)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sub-markets")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scout_runs SET status = ?, candidates = ?, sub_markets = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(candidatesJSON), string(subMarketsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// FailRun marks the run failed with its terminal error message.
func (s *SQLiteStore) FailRun(ctx context.Context, runID, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scout_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ScoutRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, kind, query, status, candidates, sub_markets, error, created_at, updated_at
		 FROM scout_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScoutRun, error) {
	query := `SELECT id, session_id, kind, query, status, candidates, sub_markets, error, created_at, updated_at
	          FROM scout_runs WHERE 1=1`
	var args []any

	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ScoutRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// GetCachedSnapshot returns the freshest unexpired snapshot for an APN, or
// nil when none exists.
func (s *SQLiteStore) GetCachedSnapshot(ctx context.Context, apn string) (*model.InfrastructureSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM snapshot_cache
		 WHERE apn = ? AND expires_at > datetime('now')
		 ORDER BY built_at DESC LIMIT 1`,
		apn,
	)

	var snapJSON string
	err := row.Scan(&snapJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached snapshot")
	}

	var snap model.InfrastructureSnapshot
	if err := json.Unmarshal([]byte(snapJSON), &snap); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached snapshot")
	}
	return &snap, nil
}

// SetCachedSnapshot stores a built snapshot for an APN with a TTL.
func (s *SQLiteStore) SetCachedSnapshot(ctx context.Context, apn string, snap *model.InfrastructureSnapshot, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshot_cache (id, apn, snapshot, built_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, apn, string(snapJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached snapshot")
}

// DeleteExpiredSnapshots removes expired cache entries, returning the count.
func (s *SQLiteStore) DeleteExpiredSnapshots(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshot_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired snapshots")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.ScoutRun, error) {
	var r model.ScoutRun
	var candidatesJSON, subMarketsJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.SessionID, &r.Kind, &r.Query, &r.Status,
		&candidatesJSON, &subMarketsJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if candidatesJSON.Valid {
		if err := json.Unmarshal([]byte(candidatesJSON.String), &r.Candidates); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal candidates")
		}
	}
	if subMarketsJSON.Valid {
		if err := json.Unmarshal([]byte(subMarketsJSON.String), &r.SubMarkets); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sub-markets")
		}
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}
