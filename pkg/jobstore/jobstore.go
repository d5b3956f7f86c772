package jobstore

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("jobstore: job not found")

// Job is the entity generation streams hang off. The relay only needs the
// owning user for authorization; the rest of the job document lives in the
// main application database.
type Job struct {
	ID          string
	UserID      string
	Title       string
	CreatedAtMS int64
}

// JobStore resolves job ownership for the resume endpoint and manages the
// small job table the relay keeps for itself.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	DeleteJob(ctx context.Context, id string) error
	Close() error
}
