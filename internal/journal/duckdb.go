package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb" // Register DuckDB driver
)

// Options holds DuckDB tuning for the journal.
type Options struct {
	Threads       int           // Number of threads for DuckDB (0 = default)
	MemoryLimitGB int           // Memory limit in GB (0 = default)
	Timeout       time.Duration // Open/ping timeout (0 = none)
}

// Option configures the journal database.
type Option func(*Options)

// WithThreads sets the number of DuckDB threads.
func WithThreads(n int) Option {
	return func(o *Options) {
		o.Threads = n
	}
}

// WithMemoryLimit sets the DuckDB memory limit in GB.
func WithMemoryLimit(gb int) Option {
	return func(o *Options) {
		o.MemoryLimitGB = gb
	}
}

// WithTimeout bounds opening the database.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// openDuckDB opens and configures a DuckDB handle.
// DSN examples:
//   - "" or ":memory:" for an in-memory database
//   - "/path/to/history.duckdb" for a file-based database
func openDuckDB(dsn string, opts Options) (*sql.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// DuckDB is embedded; one connection keeps writes serial.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if opts.Threads > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA threads=%d", opts.Threads)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting threads: %w", err)
		}
	}
	if opts.MemoryLimitGB > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA memory_limit='%dGB'", opts.MemoryLimitGB)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting memory limit: %w", err)
		}
	}
	return db, nil
}
