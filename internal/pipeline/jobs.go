package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of a batch parse job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Document is one rendered page revision queued for parsing.
type Document struct {
	RevisionID int64  `json:"revision_id"`
	Title      string `json:"title"`
	HTML       []byte `json:"-"`
}

// Job tracks the state of one batch parse request. Serialization goes
// through Snapshot, never through the live Job.
type Job struct {
	mu sync.Mutex

	ID        string
	Status    JobStatus
	Progress  Progress
	CreatedAt time.Time
	UpdatedAt time.Time

	docs []Document
}

// Progress tracks batch parse progress.
type Progress struct {
	TotalDocs  int      `json:"total_docs"`
	DocsParsed int      `json:"docs_parsed"`
	DocsStored int      `json:"docs_stored"`
	Comments   int      `json:"comments"`
	Threads    int      `json:"threads"`
	Errors     []string `json:"errors,omitempty"`
}

// NewJob builds a queued job over the given documents.
func NewJob(docs []Document) *Job {
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		Status:    StatusQueued,
		Progress:  Progress{TotalDocs: len(docs)},
		CreatedAt: now,
		UpdatedAt: now,
		docs:      docs,
	}
}

func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

func (j *Job) AddError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, msg)
	j.UpdatedAt = time.Now()
}

func (j *Job) RecordParsed(comments, threads int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DocsParsed++
	j.Progress.Comments += comments
	j.Progress.Threads += threads
	j.UpdatedAt = time.Now()
}

// RecordStored counts one document's identities persisted. The storing
// phase is visible through this counter, never through the job status.
func (j *Job) RecordStored() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DocsStored++
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a copy safe to serialize while workers keep writing.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	snap.Progress.Errors = append([]string{}, j.Progress.Errors...)
	return snap
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	return s.jobs[id]
}

// evictExpired drops jobs idle longer than the TTL. Caller holds s.mu.
func (s *JobStore) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.UpdatedAt.Before(cutoff)
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}
