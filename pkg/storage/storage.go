// Package storage owns the MySQL side of the search engine: the
// connection handle, the engine capability probe, and read-only
// accessors for the follow and read-marker tables. The engine never
// writes through this package; index maintenance is a separate path.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Capabilities describes engine-specific affordances the executor may
// use. They are probed once per handle and cached.
type Capabilities struct {
	// ForceIndexOnUnread indicates the planner benefits from forcing
	// the updated-date index when filtering unread content. MySQL 8+
	// and MariaDB plan these queries correctly on their own.
	ForceIndexOnUnread bool
}

// DB wraps a MySQL connection pool with the parameterized query
// primitives the executor needs.
type DB struct {
	db *sql.DB

	capsOnce sync.Once
	caps     Capabilities
}

// Open validates the DSN and opens a connection pool. The pool is lazy;
// no round trip happens until the first query.
func Open(dsn string) (*DB, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Ping verifies the connection is usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// QueryContext runs a parameterized SELECT and returns a lazy row
// cursor. Failures propagate unchanged; retrying is the caller's
// concern.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a parameterized single-row SELECT.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

// Capabilities probes the server flavor and version once and returns
// the cached result. A failed probe yields zero capabilities rather
// than an error; every capability is an optimization, not a
// correctness requirement.
func (d *DB) Capabilities(ctx context.Context) Capabilities {
	d.capsOnce.Do(func() {
		var version string
		if err := d.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
			return
		}
		d.caps = capabilitiesFor(version)
	})
	return d.caps
}

func capabilitiesFor(version string) Capabilities {
	return Capabilities{
		ForceIndexOnUnread: forceIndexNeeded(version),
	}
}

// forceIndexNeeded reports whether the server is an old-enough MySQL to
// need the updated-date index hint on unread queries.
func forceIndexNeeded(version string) bool {
	if strings.Contains(strings.ToLower(version), "mariadb") {
		return false
	}
	dot := strings.IndexByte(version, '.')
	if dot < 0 {
		return false
	}
	major, err := strconv.Atoi(version[:dot])
	if err != nil {
		return false
	}
	return major < 8
}
