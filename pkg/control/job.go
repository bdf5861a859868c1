// Package control implements the REST control plane (SPEC_FULL.md §2):
// job submission and status polling for a cluster run, gated by JWT
// bearer-token auth and per-client rate limiting. It is the admin surface
// clusterctl talks to; it does not itself run the ring pipeline — that is
// cmd/worker's job — it only tracks submissions and lets an operator poll
// their outcome.
package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/lshknn/dlsh/pkg/eval"
	"github.com/lshknn/dlsh/pkg/options"
)

// Status is a job's position in its lifecycle.
type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

// Job is one submitted cluster run: the options it was submitted with,
// its current status, and its result once the run completes.
type Job struct {
	ID          string
	Status      Status
	Options     *options.Options
	Result      *eval.Result
	Error       string
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Registry is the in-memory job store a control-plane Server serves from.
// One Registry is shared by every request handler; all methods are
// goroutine-safe.
type Registry struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	next  int
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Submit registers a new pending job and returns it.
func (r *Registry) Submit(opts *options.Options) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	job := &Job{
		ID:          fmt.Sprintf("job-%d", r.next),
		Status:      Pending,
		Options:     opts,
		SubmittedAt: time.Now(),
	}
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	return job
}

// Get returns the job with the given ID, or false if it does not exist.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// List returns every job, newest (most recently submitted) first.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.jobs[r.order[i]])
	}
	return out
}

// SetRunning marks a pending job as started.
func (r *Registry) SetRunning(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = Running
		job.StartedAt = time.Now()
	}
}

// SetSucceeded records a completed evaluation result against a job.
func (r *Registry) SetSucceeded(id string, result *eval.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = Succeeded
		job.Result = result
		job.FinishedAt = time.Now()
	}
}

// SetFailed records the error that ended a job.
func (r *Registry) SetFailed(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = Failed
		job.Error = err.Error()
		job.FinishedAt = time.Now()
	}
}

// Cancel marks a pending or running job cancelled. Returns false if the
// job does not exist or has already finished.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status == Succeeded || job.Status == Failed || job.Status == Cancelled {
		return false
	}
	job.Status = Cancelled
	job.FinishedAt = time.Now()
	return true
}
