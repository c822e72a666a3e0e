package pipeline

import "time"

// Status of a job, entry or step
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records the outcome of one step of one matrix entry
type StepResult struct {
	Name     string
	Status   Status
	Duration time.Duration
	Error    string
}

// EntryResult records the outcome of one matrix entry of a job
type EntryResult struct {
	Entry  MatrixEntry
	Status Status
	Steps  []StepResult
}

// JobResult records the outcome of one job
type JobResult struct {
	Name     string
	Status   Status
	Duration time.Duration
	Entries  []EntryResult
}

// RunResult records the outcome of one pipeline run
type RunResult struct {
	RunID    string
	Pipeline string
	Tag      string
	Started  time.Time
	Duration time.Duration
	Jobs     []JobResult
}

// Failed reports whether any job of the run failed
func (r *RunResult) Failed() bool {
	for _, job := range r.Jobs {
		if job.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Job returns the result of the named job, or nil
func (r *RunResult) Job(name string) *JobResult {
	for i := range r.Jobs {
		if r.Jobs[i].Name == name {
			return &r.Jobs[i]
		}
	}
	return nil
}
