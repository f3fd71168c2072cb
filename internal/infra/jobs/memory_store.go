// File: internal/infra/jobs/memory_store.go
package jobs

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"sprint-estimator/internal/domain"
	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/repository"
)

var _ repository.JobStore = (*MemoryStore)(nil)

// NewJobID returns a sortable job identifier.
func NewJobID() string {
	return "job_" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// MemoryStore keeps job state in process. Jobs do not survive a restart;
// clients re-submit after one. A TTL sweep runs lazily on Create and can
// also be driven periodically via Sweep.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]*model.Job
	maxAge time.Duration
	now    func() time.Time
}

func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &MemoryStore{
		jobs:   make(map[string]*model.Job),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.maxAge)

	now := s.now()
	job := &model.Job{
		ID:        id,
		Status:    model.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job
	return copyJob(job), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return copyJob(job), nil
}

// Update merges the patch into the stored job. Unset patch fields keep
// their current values; AppendLog never replaces earlier lines.
func (s *MemoryStore) Update(ctx context.Context, id string, patch repository.JobPatch) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.Result != nil {
		job.Result = patch.Result
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	if patch.AppendLog != "" {
		job.Logs = append(job.Logs, model.LogLine{Timestamp: s.now(), Message: patch.AppendLog})
	}
	job.UpdatedAt = s.now()
	return copyJob(job), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(maxAge)
}

func (s *MemoryStore) sweepLocked(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = s.maxAge
	}
	cutoff := s.now().Add(-maxAge)
	n := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// copyJob returns a detached copy so callers cannot mutate stored state.
func copyJob(j *model.Job) *model.Job {
	out := *j
	if j.Logs != nil {
		out.Logs = make([]model.LogLine, len(j.Logs))
		copy(out.Logs, j.Logs)
	}
	if j.Result != nil {
		r := *j.Result
		out.Result = &r
	}
	return &out
}
