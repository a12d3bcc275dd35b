// Package journal keeps an optional local history of dashboard snapshots and
// alerts in DuckDB. Each process run is tagged with its own UUID.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"autosense/internal/projector"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
  snapshot_id     VARCHAR PRIMARY KEY,
  run_id          VARCHAR NOT NULL,
  source          VARCHAR NOT NULL,
  collected_at    TIMESTAMP NOT NULL,
  cpu_percent     DOUBLE,
  cpu_count       INTEGER,
  memory_percent  DOUBLE,
  memory_used_gb  DOUBLE,
  memory_total_gb DOUBLE,
  disk_percent    DOUBLE,
  disk_used_gb    DOUBLE,
  disk_total_gb   DOUBLE,
  process_count   INTEGER
);

CREATE TABLE IF NOT EXISTS alerts (
  alert_id    VARCHAR PRIMARY KEY,
  run_id      VARCHAR NOT NULL,
  recorded_at TIMESTAMP NOT NULL,
  alert_type  VARCHAR,
  title       VARCHAR,
  message     VARCHAR,
  raised_at   TIMESTAMP,
  stored      BOOLEAN
);
`

// Source tells where a snapshot came from.
type Source string

const (
	SourceServer  Source = "server"
	SourceOffline Source = "offline"
)

// MaxRecent caps Recent.
const MaxRecent = 500

// Entry is one recorded snapshot.
type Entry struct {
	ID          string            `json:"id"`
	RunID       string            `json:"run_id"`
	Source      Source            `json:"source"`
	CollectedAt time.Time         `json:"collected_at"`
	Metrics     projector.Metrics `json:"metrics"`
}

// Summary aggregates the whole journal.
type Summary struct {
	Runs          int64     `json:"runs"`
	Snapshots     int64     `json:"snapshots"`
	Alerts        int64     `json:"alerts"`
	AvgCPU        float64   `json:"avg_cpu_percent"`
	MaxCPU        float64   `json:"max_cpu_percent"`
	AvgMemory     float64   `json:"avg_memory_percent"`
	MaxMemory     float64   `json:"max_memory_percent"`
	FirstRecorded time.Time `json:"first_recorded,omitzero"`
	LastRecorded  time.Time `json:"last_recorded,omitzero"`
}

// Journal records snapshots. Methods are safe for concurrent use.
type Journal struct {
	db     *sql.DB
	runID  uuid.UUID
	logger *slog.Logger
	mu     sync.Mutex
}

// Open opens (creating if needed) the journal at path and migrates the
// schema. An empty path or ":memory:" gives an in-memory journal.
func Open(ctx context.Context, path string, logger *slog.Logger, opts ...Option) (*Journal, error) {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	db, err := openDuckDB(path, o)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	j := &Journal{db: db, runID: uuid.New(), logger: logger}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("journal opened", slog.String("path", path), slog.String("run_id", j.runID.String()))
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

// RunID identifies this process's rows.
func (j *Journal) RunID() string {
	return j.runID.String()
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordSnapshot appends one snapshot.
func (j *Journal) RecordSnapshot(ctx context.Context, m projector.Metrics, src Source, at time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO snapshots(
		  snapshot_id, run_id, source, collected_at,
		  cpu_percent, cpu_count,
		  memory_percent, memory_used_gb, memory_total_gb,
		  disk_percent, disk_used_gb, disk_total_gb,
		  process_count
		) VALUES (?,?,?,?, ?,?, ?,?,?, ?,?,?, ?)`,
		uuid.NewString(), j.runID.String(), string(src), at.UTC(),
		m.CPUPercent, m.CPUCount,
		m.MemoryPercent, m.MemoryUsedGB, m.MemoryTotalGB,
		m.DiskPercent, m.DiskUsedGB, m.DiskTotalGB,
		m.ProcessCount,
	)
	if err != nil {
		return fmt.Errorf("journal: insert snapshot: %w", err)
	}
	return nil
}

// RecordAlerts stores alerts not already seen in this run. The backend
// resends stored alerts on every poll, so rows are keyed by content.
func (j *Journal) RecordAlerts(ctx context.Context, alerts []projector.Alert, at time.Time) (int, error) {
	if len(alerts) == 0 {
		return 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("journal: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, a := range alerts {
		id := alertID(j.runID, a)
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO alerts(alert_id, run_id, recorded_at, alert_type, title, message, raised_at, stored)
			VALUES (?,?,?,?,?,?,?,?)`,
			id, j.runID.String(), at.UTC(), a.Type, a.Title, a.Message, nullTime(a.Timestamp), a.Stored,
		)
		if err != nil {
			return 0, fmt.Errorf("journal: insert alert: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal: commit alerts: %w", err)
	}
	return inserted, nil
}

func alertID(run uuid.UUID, a projector.Alert) string {
	key := strings.Join([]string{a.Type, a.Title, a.Message, a.Timestamp.UTC().Format(time.RFC3339Nano)}, "\x00")
	return uuid.NewSHA1(run, []byte(key)).String()
}

// Recent returns up to n snapshots, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	if n > MaxRecent {
		n = MaxRecent
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT snapshot_id, run_id, source, collected_at,
		       COALESCE(cpu_percent, 0), COALESCE(cpu_count, 0),
		       COALESCE(memory_percent, 0), COALESCE(memory_used_gb, 0), COALESCE(memory_total_gb, 0),
		       COALESCE(disk_percent, 0), COALESCE(disk_used_gb, 0), COALESCE(disk_total_gb, 0),
		       COALESCE(process_count, 0)
		FROM snapshots
		ORDER BY collected_at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var src string
		var cpuCount, procCount int32
		if err := rows.Scan(
			&e.ID, &e.RunID, &src, &e.CollectedAt,
			&e.Metrics.CPUPercent, &cpuCount,
			&e.Metrics.MemoryPercent, &e.Metrics.MemoryUsedGB, &e.Metrics.MemoryTotalGB,
			&e.Metrics.DiskPercent, &e.Metrics.DiskUsedGB, &e.Metrics.DiskTotalGB,
			&procCount,
		); err != nil {
			return nil, fmt.Errorf("journal: scan snapshot: %w", err)
		}
		e.Source = Source(src)
		e.Metrics.CPUCount = int(cpuCount)
		e.Metrics.ProcessCount = int(procCount)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows iteration: %w", err)
	}
	return entries, nil
}

// Summary aggregates all recorded runs.
func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	var avgCPU, maxCPU, avgMem, maxMem sql.NullFloat64
	var first, last sql.NullTime

	err := j.db.QueryRowContext(ctx, `
		SELECT count(*), count(DISTINCT run_id),
		       avg(cpu_percent), max(cpu_percent),
		       avg(memory_percent), max(memory_percent),
		       min(collected_at), max(collected_at)
		FROM snapshots`).Scan(&s.Snapshots, &s.Runs, &avgCPU, &maxCPU, &avgMem, &maxMem, &first, &last)
	if err != nil {
		return Summary{}, fmt.Errorf("journal: summarize snapshots: %w", err)
	}
	s.AvgCPU, s.MaxCPU = avgCPU.Float64, maxCPU.Float64
	s.AvgMemory, s.MaxMemory = avgMem.Float64, maxMem.Float64
	s.FirstRecorded, s.LastRecorded = first.Time, last.Time

	if err := j.db.QueryRowContext(ctx, `SELECT count(*) FROM alerts`).Scan(&s.Alerts); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Summary{}, fmt.Errorf("journal: count alerts: %w", err)
		}
	}
	return s, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
