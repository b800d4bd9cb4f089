package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Totals are the aggregate counters of a job. Matched is always
// Exact + Partial, and Tokens is always Matched + Failed.
type Totals struct {
	Tokens  int `json:"tokens"`
	Matched int `json:"matched"`
	Exact   int `json:"exact"`
	Partial int `json:"partial"`
	Failed  int `json:"failed"`
}

// PageFailure records a page that produced zero tokens after every
// configured backend was exhausted, or that could not be rendered at all.
// Page failures never fail the job.
type PageFailure struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Reason   string `json:"reason"`
}

// JobSnapshot is an immutable, self-consistent view of a job. The runner
// goroutine publishes a fresh snapshot after every page; readers never see
// partially-updated totals. The API returns a job_id on POST /api/v1/jobs;
// the client polls GET /api/v1/jobs/{job_id} until status is completed or
// failed.
type JobSnapshot struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	// Progress is a 0-100 percentage of pages processed. It is monotonically
	// non-decreasing and reaches 100 only when every page has been processed
	// or recorded as a page failure.
	Progress         int           `json:"progress"`
	Pages            int           `json:"pages"`
	PagesDone        int           `json:"pages_done"`
	Totals           Totals        `json:"totals"`
	BackendRequested string        `json:"backend_requested"`
	BackendUsed      string        `json:"backend_used,omitempty"`
	Results          []MatchResult `json:"-"`
	Failures         []MatchResult `json:"-"`
	PageFailures     []PageFailure `json:"page_failures,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}
