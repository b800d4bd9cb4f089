package job

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job ID is unknown.
var ErrNotFound = errors.New("job: not found")

// Store holds jobs in memory for the lifetime of the process. Jobs do not
// survive restarts; results are expected to be downloaded promptly.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[uuid.UUID]*Job)}
}

func (s *Store) Put(j *Job) {
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
}

func (s *Store) Get(id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// Len reports the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
