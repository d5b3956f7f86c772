package jobstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteJobStore persists jobs in a local sqlite database. The schema is
// created on open.
type SQLiteJobStore struct {
	db *sql.DB
}

var _ JobStore = (*SQLiteJobStore)(nil)

func NewSQLiteJobStore(dsn string) (*SQLiteJobStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite job store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite job store")
	}
	s := &SQLiteJobStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteJobStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteJobStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL
	);`)
	if err != nil {
		return errors.Wrap(err, "migrate jobs table")
	}
	return nil
}

func (s *SQLiteJobStore) CreateJob(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("sqlite job store: empty job id")
	}
	createdAt := job.CreatedAtMS
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs (job_id, user_id, title, created_at_ms) VALUES (?, ?, ?, ?)`,
		job.ID, job.UserID, job.Title, createdAt,
	)
	return errors.Wrap(err, "insert job")
}

func (s *SQLiteJobStore) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, user_id, title, created_at_ms FROM jobs WHERE job_id = ?`, id)
	job := &Job{}
	err := row.Scan(&job.ID, &job.UserID, &job.Title, &job.CreatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query job")
	}
	return job, nil
}

func (s *SQLiteJobStore) DeleteJob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = ?`, id)
	return errors.Wrap(err, "delete job")
}
