// Package store indexes match summaries in SQLite so tallies can be queried
// without re-reading every log.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"zerosum/engine"
	"zerosum/matchlog"
)

const timeFormat = time.RFC3339Nano

//go:embed schema.sql
var schema string

// Store is a SQLite-backed match index.
type Store struct {
	sqlDB *sql.DB
}

// Open opens or creates the index at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Matches finish on many goroutines; serialize writers on one connection.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordMatch stores a summary and its participants. Recording the same
// match twice replaces the earlier row.
func (s *Store) RecordMatch(ctx context.Context, summary matchlog.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(summary.MatchID) == "" {
		return fmt.Errorf("match id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var started string
	if !summary.Metric.StartTime.IsZero() {
		started = summary.Metric.StartTime.UTC().Format(timeFormat)
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO matches
		(match_id, game, status, winner, forfeiter, limit_draw, warmup, reason, rounds, started_at, duration_ns, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.MatchID, summary.Game, string(summary.Status), summary.Winner, summary.Forfeiter,
		summary.LimitDraw, summary.Warmup, summary.Reason, summary.Rounds, started,
		int64(summary.Metric.Duration), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE match_id = ?`, summary.MatchID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	for _, role := range summary.Roles() {
		_, err := tx.ExecContext(ctx, `INSERT INTO participants (match_id, role, model) VALUES (?, ?, ?)`,
			summary.MatchID, role, summary.Participants[role])
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const wdlQuery = `SELECT p.model,
	SUM(CASE WHEN (m.status = 'won' AND m.winner = p.role) OR (m.status = 'forfeited' AND m.forfeiter <> p.role) THEN 1 ELSE 0 END),
	SUM(CASE WHEN m.status = 'drawn' THEN 1 ELSE 0 END),
	SUM(CASE WHEN (m.status = 'won' AND m.winner <> p.role) OR (m.status = 'forfeited' AND m.forfeiter = p.role) THEN 1 ELSE 0 END),
	SUM(CASE WHEN m.status = 'aborted' THEN 1 ELSE 0 END)
FROM participants p JOIN matches m ON m.match_id = p.match_id
GROUP BY p.model
ORDER BY p.model`

// WDL aggregates win/draw/loss/abort counts per model over every recorded
// match.
func (s *Store) WDL(ctx context.Context) (map[string]matchlog.WDL, error) {
	rows, err := s.sqlDB.QueryContext(ctx, wdlQuery)
	if err != nil {
		return nil, fmt.Errorf("query wdl: %w", err)
	}
	defer rows.Close()

	out := map[string]matchlog.WDL{}
	for rows.Next() {
		var model string
		var w matchlog.WDL
		if err := rows.Scan(&model, &w.Wins, &w.Draws, &w.Losses, &w.Aborts); err != nil {
			return nil, fmt.Errorf("scan wdl: %w", err)
		}
		out[model] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wdl: %w", err)
	}
	return out, nil
}

// Matches returns every recorded summary ordered by match id. Final states
// and round records are only kept in the log files.
func (s *Store) Matches(ctx context.Context) ([]matchlog.Summary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT m.match_id, m.game, m.status, m.winner, m.forfeiter,
		m.limit_draw, m.warmup, m.reason, m.rounds, m.duration_ns, p.role, p.model
		FROM matches m LEFT JOIN participants p ON p.match_id = m.match_id
		ORDER BY m.match_id, p.role`)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []matchlog.Summary
	for rows.Next() {
		var (
			sum         matchlog.Summary
			status      string
			durationNS  int64
			role, model sql.NullString
		)
		err := rows.Scan(&sum.MatchID, &sum.Game, &status, &sum.Winner, &sum.Forfeiter,
			&sum.LimitDraw, &sum.Warmup, &sum.Reason, &sum.Rounds, &durationNS, &role, &model)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].MatchID != sum.MatchID {
			sum.Type = matchlog.TypeSummary
			sum.Status = engine.Status(status)
			sum.Metric.Duration = time.Duration(durationNS)
			sum.Metric.Rounds = sum.Rounds
			sum.Participants = map[string]string{}
			out = append(out, sum)
		}
		if role.Valid {
			out[len(out)-1].Participants[role.String] = model.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}
