package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/protocol"

	_ "modernc.org/sqlite"
)

// Entry is one served request.
type Entry struct {
	ID         int64     `json:"id"`
	ConnID     string    `json:"connId"`
	RemoteAddr string    `json:"remoteAddr"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// Journal records served requests in a SQLite database.
type Journal struct {
	db *sql.DB
}

// New opens (or creates) the journal database at dbPath.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and
	// serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conn_id TEXT NOT NULL DEFAULT '',
		remote_addr TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_at ON requests(at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record stores one entry and returns its id.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO requests (conn_id, remote_addr, method, path, status, duration_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ConnID, e.RemoteAddr, e.Method, e.Path, e.Status, e.DurationMS,
		e.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert request: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, conn_id, remote_addr, method, path, status, duration_ms, at
		 FROM requests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.ConnID, &e.RemoteAddr, &e.Method, &e.Path, &e.Status, &e.DurationMS, &at); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded requests.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests").Scan(&n)
	return n, err
}

// Middleware records every request after it has been handled. Journal
// failures are logged and do not affect the response.
func (j *Journal) Middleware(log *slog.Logger) protocol.Middleware {
	return func(next protocol.HandlerFunc) protocol.HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) protocol.Response {
			start := time.Now()
			resp := next(ctx, req)

			_, err := j.Record(ctx, Entry{
				ConnID:     model.ConnIDFromContext(ctx),
				RemoteAddr: req.RemoteAddr,
				Method:     req.Method,
				Path:       req.Path,
				Status:     resp.Status,
				DurationMS: time.Since(start).Milliseconds(),
				At:         start,
			})
			if err != nil {
				log.Error("failed to record request", "path", req.Path, "error", err)
			}
			return resp
		}
	}
}
