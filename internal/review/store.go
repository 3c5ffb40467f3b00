// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review keeps an audit trail of assembled papers in SQLite so
// that unresolved titles, ambiguous merges and failures can be listed and
// exported for manual review.
package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-reconciler/internal/assemble"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Entry is one recorded paper.
type Entry struct {
	ID         string           `json:"id" yaml:"id"`
	Volume     int              `json:"volume" yaml:"volume"`
	PaperKey   string           `json:"paper_key" yaml:"paper_key"`
	URL        string           `json:"url" yaml:"url"`
	Title      string           `json:"title" yaml:"title"`
	Proceeding string           `json:"proceeding" yaml:"proceeding"`
	Event      string           `json:"event" yaml:"event"`
	Authors    []types.Author   `json:"authors" yaml:"authors"`
	Status     assemble.Status  `json:"status" yaml:"status"`
	Issues     []assemble.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
	RunID      string           `json:"run_id" yaml:"run_id"`
	UpdatedAt  time.Time        `json:"updated_at" yaml:"updated_at"`
}

// Store is the review database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at cfg.DBPath, creating parent
// directories and the schema as needed.
func Open(cfg types.ReviewConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("review database path is empty")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating review directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; papers are recorded from several workers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			volume INTEGER NOT NULL,
			paper_key TEXT NOT NULL,
			url TEXT,
			title TEXT,
			proceeding TEXT,
			event TEXT,
			authors TEXT,
			status TEXT NOT NULL,
			issues TEXT,
			run_id TEXT,
			updated_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_volume ON papers(volume)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record upserts the paper assembled in res.
func (s *Store) Record(ctx context.Context, runID string, ref types.PaperRef, res assemble.Result) error {
	authors, err := json.Marshal(res.Paper.Authors)
	if err != nil {
		return fmt.Errorf("encoding authors: %w", err)
	}
	issues, err := json.Marshal(res.Issues)
	if err != nil {
		return fmt.Errorf("encoding issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO papers (id, volume, paper_key, url, title, proceeding, event, authors, status, issues, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			paper_key = excluded.paper_key,
			url = excluded.url,
			title = excluded.title,
			proceeding = excluded.proceeding,
			event = excluded.event,
			authors = excluded.authors,
			status = excluded.status,
			issues = excluded.issues,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		ref.ID(), ref.Volume, ref.Key, ref.URL,
		res.Paper.Title, res.Paper.Proceeding, res.Paper.Event,
		string(authors), string(res.Status()), string(issues),
		runID, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", ref.ID(), err)
	}
	return nil
}

const selectEntries = `SELECT id, volume, paper_key, url, title, proceeding, event, authors, status, issues, run_id, updated_at FROM papers`

// List returns the recorded papers with the given status ("" for all),
// ordered by volume and key.
func (s *Store) List(ctx context.Context, status assemble.Status) ([]Entry, error) {
	query := selectEntries
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY volume, paper_key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Counts returns the number of recorded papers per status.
func (s *Store) Counts(ctx context.Context) (map[assemble.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM papers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting papers: %w", err)
	}
	defer rows.Close()

	counts := make(map[assemble.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[assemble.Status(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                                  Entry
		url, title, proc, event, runID     sql.NullString
		authors, issues, status, updatedAt sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Volume, &e.PaperKey, &url, &title, &proc, &event,
		&authors, &status, &issues, &runID, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning paper: %w", err)
	}
	e.URL, e.Title, e.Proceeding, e.Event, e.RunID = url.String, title.String, proc.String, event.String, runID.String
	e.Status = assemble.Status(status.String)

	if authors.String != "" {
		if err := json.Unmarshal([]byte(authors.String), &e.Authors); err != nil {
			return Entry{}, fmt.Errorf("decoding authors of %s: %w", e.ID, err)
		}
	}
	if issues.String != "" && issues.String != "null" {
		if err := json.Unmarshal([]byte(issues.String), &e.Issues); err != nil {
			return Entry{}, fmt.Errorf("decoding issues of %s: %w", e.ID, err)
		}
	}
	if updatedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err == nil {
			e.UpdatedAt = t
		}
	}
	return e, nil
}

// ExportYAML writes the entries with status ("" for all) to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, path string, status assemble.Status) error {
	entries, err := s.List(ctx, status)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the entries with status ("" for all) to path as JSON.
func (s *Store) ExportJSON(ctx context.Context, path string, status assemble.Status) error {
	entries, err := s.List(ctx, status)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
