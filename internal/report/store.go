// Package report persists search hits in SQLite so results from many runs
// can be listed and compared later.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/search"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	created INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	name TEXT NOT NULL,
	expression TEXT NOT NULL,
	anchor_type TEXT NOT NULL,
	line INTEGER NOT NULL DEFAULT 0,
	col INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_hits_source ON hits(source, line, col);
`

// Record is a stored hit.
type Record struct {
	RunID      int64     `json:"run_id"`
	Query      string    `json:"query"`
	Created    time.Time `json:"created"`
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	AnchorType string    `json:"anchor_type"`
	Line       int       `json:"line,omitempty"`
	Column     int       `json:"column,omitempty"`
}

// Store is a SQLite-backed hit log.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save records hits as one run of q and returns the run id.
func (s *Store) Save(ctx context.Context, q api.Query, hits []search.Hit) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs (query, created) VALUES (?, ?)`, q.String(), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hits (run_id, source, target, name, expression, anchor_type, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	for _, h := range hits {
		if _, err := stmt.ExecContext(ctx, runID, h.Source, h.Target, h.Name, h.Expression, h.AnchorType, h.Line, h.Column); err != nil {
			return 0, fmt.Errorf("insert hit %s: %w", h.Location(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// Filter narrows Hits. Zero values match everything.
type Filter struct {
	Source string
	RunID  int64
}

// Hits lists stored hits ordered by run, source and position.
func (s *Store) Hits(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Source != "" {
		where = append(where, "h.source = ?")
		args = append(args, f.Source)
	}
	if f.RunID != 0 {
		where = append(where, "h.run_id = ?")
		args = append(args, f.RunID)
	}
	query := `
		SELECT r.id, r.query, r.created, h.source, h.target, h.name, h.expression, h.anchor_type, h.line, h.col
		FROM hits h JOIN runs r ON r.id = h.run_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.id, h.source, h.line, h.col, h.name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			created int64
		)
		if err := rows.Scan(&r.RunID, &r.Query, &created, &r.Source, &r.Target, &r.Name, &r.Expression, &r.AnchorType, &r.Line, &r.Column); err != nil {
			return nil, err
		}
		r.Created = time.Unix(created, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
