package dispatch

import "sync"

type jobStatus string

const (
	jobQueued    jobStatus = "queued"
	jobActive    jobStatus = "active"
	jobCompleted jobStatus = "completed"
	jobFailed    jobStatus = "failed"
)

type jobState struct {
	status      jobStatus
	description string
	processed   int
	total       int
}

// JobProgress is GetJobProgress's return shape (spec.md §4.8): an
// in-flight job reports processed/total as it works through a batch; a
// fallen-back-to-connection-status lookup only ever has Progress set.
type JobProgress struct {
	IsActive    bool
	IsCompleted bool
	IsFailed    bool
	Progress    float64
	Description string
	Total       *int
	Processed   *int
}

// ProgressTracker is the in-process job-id -> state map backing both
// jobs.ProgressReporter (via Report) and Dispatcher.GetJobProgress. It is
// constructed once and shared between every job body and the dispatcher
// that routes to them, so a job body never needs to know which backend
// carried it.
type ProgressTracker struct {
	mu   sync.Mutex
	jobs map[string]*jobState
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{jobs: make(map[string]*jobState)}
}

func (t *ProgressTracker) markQueued(jobID, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[jobID] = &jobState{status: jobQueued, description: description}
}

func (t *ProgressTracker) markActive(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.jobs[jobID]; ok {
		s.status = jobActive
	}
}

func (t *ProgressTracker) markCompleted(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.jobs[jobID]; ok {
		s.status = jobCompleted
	}
}

func (t *ProgressTracker) markFailed(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.jobs[jobID]; ok {
		s.status = jobFailed
	}
}

// Report implements jobs.ProgressReporter: a job body calls this as it
// works through a batch so GetJobProgress can report real processed/total
// counts instead of the connection-status-based estimate.
func (t *ProgressTracker) Report(jobID string, processed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.jobs[jobID]; ok {
		s.processed = processed
		s.total = total
	}
}

func (t *ProgressTracker) get(jobID string) (*JobProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.jobs[jobID]
	if !ok {
		return nil, false
	}
	p := &JobProgress{Description: s.description}
	switch s.status {
	case jobQueued:
		p.IsActive = true
	case jobActive:
		p.IsActive = true
		if s.total > 0 {
			p.Progress = float64(s.processed) / float64(s.total)
			processed, total := s.processed, s.total
			p.Processed, p.Total = &processed, &total
		}
	case jobCompleted:
		p.IsCompleted = true
		p.Progress = 1
	case jobFailed:
		p.IsFailed = true
		p.Progress = 1
	}
	return p, true
}
