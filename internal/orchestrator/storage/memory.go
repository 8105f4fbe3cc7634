package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
)

// MemoryStore keeps records in process memory. It backs the status API when
// no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.Job
	lines map[string][]LogLine
	seq   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*domain.Job),
		lines: make(map[string][]LogLine),
	}
}

func (m *MemoryStore) SaveJob(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (m *MemoryStore) ListJobs(_ context.Context, filter JobFilter) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if filter.Workload != "" && string(job.Workload) != filter.Workload {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.BatchID != "" && job.BatchID != filter.BatchID {
			continue
		}
		if filter.Cursor != nil && !before(job, *filter.Cursor) {
			continue
		}
		jobs = append(jobs, cloneJob(job))
	}

	sort.Slice(jobs, func(i, j int) bool {
		return before(jobs[j], JobCursor{SubmittedAt: jobs[i].SubmittedAt, JobID: jobs[i].ID})
	})

	if filter.PageSize > 0 && len(jobs) > filter.PageSize+1 {
		jobs = jobs[:filter.PageSize+1]
	}
	return jobs, nil
}

func (m *MemoryStore) AppendLogLines(_ context.Context, jobID string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return ErrJobNotFound
	}

	now := time.Now().UTC()
	for _, line := range lines {
		m.seq++
		m.lines[jobID] = append(m.lines[jobID], LogLine{
			Seq:       m.seq,
			JobID:     jobID,
			Line:      line,
			CreatedAt: now,
		})
	}
	return nil
}

func (m *MemoryStore) ListLogLines(_ context.Context, jobID string, afterSeq int64, limit int) ([]LogLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.jobs[jobID]; !ok {
		return nil, ErrJobNotFound
	}

	stored := m.lines[jobID]
	start := sort.Search(len(stored), func(i int) bool {
		return stored[i].Seq > afterSeq
	})

	end := len(stored)
	if limit > 0 && end-start > limit+1 {
		end = start + limit + 1
	}

	out := make([]LogLine, end-start)
	copy(out, stored[start:end])
	return out, nil
}
