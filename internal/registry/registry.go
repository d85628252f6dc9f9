// Package registry holds the process-wide mapping from job identifier to job
// state. It is the only shared mutable resource in the service: each job has a
// single writer (its worker) and any number of concurrent readers (progress
// subscribers), so every read returns a value snapshot, never a live pointer.
package registry

import (
	"errors"
	"sync"
	"time"

	"audiofetch/internal/models"
)

// ErrDuplicateJob is returned when creating a record whose id already exists.
var ErrDuplicateJob = errors.New("duplicate job id")

// Store is the job registry contract. Implementations must be safe for one
// writer and many concurrent readers per record.
type Store interface {
	// Create inserts a new record, failing with ErrDuplicateJob if id exists.
	Create(id string, job models.Job) error
	// Get returns a snapshot of the record, or false when id is unknown.
	Get(id string) (models.Job, bool)
	// Update atomically applies fn to the record for id. Unknown ids are a
	// silent no-op: a worker may race with registry inspection.
	Update(id string, fn func(*models.Job))
	// Len reports the number of records currently held.
	Len() int
	// Evict removes terminal records not updated since cutoff and reports how
	// many were removed.
	Evict(cutoff time.Time) int
}

// Memory is the in-process Store implementation.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*models.Job)}
}

func (m *Memory) Create(id string, job models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; ok {
		return ErrDuplicateJob
	}
	clone := job
	clone.ID = id
	m.jobs[id] = &clone
	return nil
}

func (m *Memory) Get(id string) (models.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

func (m *Memory) Update(id string, fn func(*models.Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

func (m *Memory) Evict(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, job := range m.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
