// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jobstore persists extraction job results in a local SQLite
// database so past runs can be listed, inspected, and exported.
package jobstore

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

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

const dbFile = "jobs.db"

// Store manages the job-history SQLite database.
type Store struct {
	db         *sql.DB
	historyDir string
	maxResults int
}

// NewStore opens or creates the job database at historyDir/jobs.db, creating
// the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	historyDir := cfg.HistoryDir
	if historyDir == "" {
		historyDir = "history"
	}
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(historyDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		historyDir: historyDir,
		maxResults: maxResults,
	}

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
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			input TEXT NOT NULL,
			fields TEXT NOT NULL,
			record TEXT NOT NULL,
			segments INTEGER NOT NULL,
			backend_calls INTEGER NOT NULL,
			conflicts TEXT,
			elapsed_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_input ON jobs(input)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Job is one persisted extraction run.
type Job struct {
	ID           int64              `json:"id" yaml:"id"`
	Input        string             `json:"input" yaml:"input"`
	Fields       []string           `json:"fields" yaml:"fields"`
	Record       types.MergedRecord `json:"record" yaml:"record"`
	Segments     int                `json:"segments" yaml:"segments"`
	BackendCalls int                `json:"backend_calls" yaml:"backend_calls"`
	Conflicts    []types.Conflict   `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Elapsed      time.Duration      `json:"elapsed" yaml:"elapsed"`
	CreatedAt    time.Time          `json:"created_at" yaml:"created_at"`
}

// Save records a completed job and returns its ID.
func (s *Store) Save(ctx context.Context, input string, result *types.JobResult) (int64, error) {
	fieldsJSON, err := json.Marshal(result.Fields)
	if err != nil {
		return 0, fmt.Errorf("marshaling fields: %w", err)
	}
	recordJSON, err := json.Marshal(result.Record)
	if err != nil {
		return 0, fmt.Errorf("marshaling record: %w", err)
	}
	conflictsJSON, err := json.Marshal(result.Conflicts)
	if err != nil {
		return 0, fmt.Errorf("marshaling conflicts: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (input, fields, record, segments, backend_calls, conflicts, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		input, string(fieldsJSON), string(recordJSON),
		result.Segments, result.BackendCalls, string(conflictsJSON),
		result.Elapsed.Milliseconds(), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading job id: %w", err)
	}
	return id, nil
}

// List returns the most recent jobs, newest first. limit 0 means the
// configured default; negative means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit == 0 {
		limit = s.maxResults
	}
	if limit < 0 {
		limit = -1 // SQLite treats LIMIT -1 as unbounded.
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, fields, record, segments, backend_calls, conflicts, elapsed_ms, created_at
		 FROM jobs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Get returns one job by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, fields, record, segments, backend_calls, conflicts, elapsed_ms, created_at
		 FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %d not found", id)
	}
	return job, err
}

func scanJob(scan func(dest ...any) error) (*Job, error) {
	var job Job
	var fieldsJSON, recordJSON, conflictsJSON, createdAt string
	var elapsedMS int64

	if err := scan(&job.ID, &job.Input, &fieldsJSON, &recordJSON,
		&job.Segments, &job.BackendCalls, &conflictsJSON, &elapsedMS, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &job.Fields); err != nil {
		return nil, fmt.Errorf("decoding fields for job %d: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(recordJSON), &job.Record); err != nil {
		return nil, fmt.Errorf("decoding record for job %d: %w", job.ID, err)
	}
	if conflictsJSON != "" {
		if err := json.Unmarshal([]byte(conflictsJSON), &job.Conflicts); err != nil {
			return nil, fmt.Errorf("decoding conflicts for job %d: %w", job.ID, err)
		}
	}

	job.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		job.CreatedAt = t
	}
	return &job, nil
}

// ExportYAML writes all jobs to historyDir/export.yaml, newest first.
func (s *Store) ExportYAML(ctx context.Context) error {
	jobs, err := s.List(ctx, -1)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}
	return os.WriteFile(filepath.Join(s.historyDir, "export.yaml"), data, 0o644)
}

// ExportJSON writes all jobs to historyDir/export.json, newest first.
func (s *Store) ExportJSON(ctx context.Context) error {
	jobs, err := s.List(ctx, -1)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}
	return os.WriteFile(filepath.Join(s.historyDir, "export.json"), data, 0o644)
}
