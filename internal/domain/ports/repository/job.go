// File: internal/domain/ports/repository/job.go
package repository

import (
	"context"
	"time"

	"sprint-estimator/internal/domain/model"
)

// JobPatch is a partial update; nil fields are left untouched.
// AppendLog adds one line to the job's log without replacing prior lines.
type JobPatch struct {
	Status    *model.JobStatus
	Progress  *string
	Result    *model.EstimationResult
	Error     *string
	AppendLog string
}

type JobStore interface {
	Create(ctx context.Context, id string) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Update(ctx context.Context, id string, patch JobPatch) (*model.Job, error)
	Delete(ctx context.Context, id string) error
	// Sweep removes jobs created more than maxAge ago and returns the count.
	Sweep(ctx context.Context, maxAge time.Duration) int
}
