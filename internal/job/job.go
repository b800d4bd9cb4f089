// Package job runs document scans in the background and tracks their state.
//
// Each job owns a single runner goroutine. The runner is the only writer; it
// publishes an immutable snapshot after every page, and readers always see a
// complete, internally consistent view through the atomic pointer.
package job

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mkurosawa/partscan/internal/match"
	"github.com/mkurosawa/partscan/pkg/models"
)

// Document is one uploaded file to scan.
type Document struct {
	Name string
	Path string
}

// Submission carries everything needed to run a job. WorkDir, when set, is
// the directory holding the uploaded documents; the runner removes it once
// the job completes. Failed jobs keep it so a retry can re-read the files.
type Submission struct {
	MasterData []byte
	Documents  []Document
	Backend    string
	WorkDir    string
}

// Job is a single scan run. All mutation happens on the runner goroutine;
// everyone else reads through Snapshot.
type Job struct {
	ID         uuid.UUID
	submission Submission

	snapshot atomic.Pointer[models.JobSnapshot]
	index    atomic.Pointer[match.Index]

	mu      sync.Mutex
	running bool
}

func newJob(sub Submission) *Job {
	j := &Job{ID: uuid.New(), submission: sub}
	j.publish(models.JobSnapshot{
		ID:               j.ID,
		Status:           models.JobStatusQueued,
		BackendRequested: sub.Backend,
		CreatedAt:        time.Now().UTC(),
	})
	return j
}

// Snapshot returns the last published state. The returned value and the
// slices it references are never mutated after publication.
func (j *Job) Snapshot() models.JobSnapshot {
	return *j.snapshot.Load()
}

func (j *Job) publish(snap models.JobSnapshot) {
	j.snapshot.Store(&snap)
}

// Index returns the master index built for the last run, or nil before the
// master file has been parsed.
func (j *Job) Index() *match.Index {
	return j.index.Load()
}

// tryStart marks the job running; it fails if a runner is already active.
func (j *Job) tryStart() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *Job) finish() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}
