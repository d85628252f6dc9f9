package models

import "time"

// JobStatus represents the current state of a conversion job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDownloading JobStatus = "downloading"
	StatusProcessing  JobStatus = "processing"
	StatusDone        JobStatus = "done"
	StatusError       JobStatus = "error"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransitionTo enforces the allowed job state machine edges. Any
// non-terminal state may move to error; everything else only moves forward.
func (s JobStatus) CanTransitionTo(to JobStatus) bool {
	if to == StatusError {
		return !s.Terminal()
	}
	switch s {
	case StatusQueued:
		return to == StatusDownloading
	case StatusDownloading:
		return to == StatusDownloading || to == StatusProcessing
	case StatusProcessing:
		return to == StatusDone
	default:
		return false
	}
}

// Job stores metadata and runtime state for one conversion request. The ID is
// immutable once assigned; only the job's own worker mutates the rest.
type Job struct {
	ID        string    `json:"id"`
	URL       string    `json:"-"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Filename  string    `json:"filename"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressSnapshot is the wire payload pushed to progress subscribers.
type ProgressSnapshot struct {
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Filename string    `json:"filename,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Snapshot returns the job state as delivered to a subscriber.
func (j Job) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Status:   j.Status,
		Progress: j.Progress,
		Filename: j.Filename,
		Error:    j.Error,
	}
}
