package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/packwright/packwright/pkg/helper"
	"github.com/packwright/packwright/pkg/logger"
)

const defaultWorkers = 4

// StepSession executes the steps of one matrix entry of one job. A session
// carries state between steps (build output, archive path, downloads).
type StepSession interface {
	RunStep(ctx context.Context, step Step) error
}

// StepRunner hands out a session per job/entry combination
type StepRunner interface {
	Begin(job string, entry MatrixEntry) StepSession
}

// Executor runs a pipeline: jobs in dependency order under a bounded worker
// pool, matrix entries of a job concurrently, steps of an entry strictly in
// sequence. A failed step aborts its entry, a failed entry fails the job,
// and jobs downstream of a failure are skipped.
type Executor struct {
	pipeline *Pipeline
	runner   StepRunner
	workers  int
	log      *logger.Logger
}

// NewExecutor creates an executor for the given pipeline
func NewExecutor(p *Pipeline, runner StepRunner, workers int) *Executor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Executor{
		pipeline: p,
		runner:   runner,
		workers:  workers,
		log:      logger.NewLogger("executor"),
	}
}

// Run executes the pipeline and returns the collected results. The returned
// error is non-nil only for plan-level problems; job failures are reported
// through the result.
func (e *Executor) Run(ctx context.Context, runID, tag string) (*RunResult, error) {
	order, err := e.pipeline.ExecutionOrder()
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:    runID,
		Pipeline: e.pipeline.Name,
		Tag:      tag,
		Started:  time.Now(),
	}

	status := make(map[string]Status, len(order))
	for _, name := range order {
		status[name] = StatusPending
	}

	sem := make(chan struct{}, e.workers)
	done := make(chan JobResult)
	running := 0

	for {
		// Propagate skips until stable, then launch every ready job
		for e.markSkipped(status, result) {
		}

		for _, name := range order {
			if status[name] != StatusPending {
				continue
			}
			if ctx.Err() != nil {
				status[name] = StatusSkipped
				result.Jobs = append(result.Jobs, JobResult{Name: name, Status: StatusSkipped})
				continue
			}
			if !e.needsSucceeded(name, status) {
				continue
			}

			status[name] = StatusRunning
			running++
			job := e.pipeline.Job(name)
			go e.runJob(ctx, sem, job, done)
			e.log.WithFields(logger.Fields{"job": name}).Info("Job scheduled")
		}

		if running == 0 {
			break
		}

		jr := <-done
		running--
		status[jr.Name] = jr.Status
		result.Jobs = append(result.Jobs, jr)
		e.log.WithFields(logger.Fields{
			"job":      jr.Name,
			"status":   jr.Status,
			"duration": jr.Duration.Round(time.Millisecond),
		}).Info("Job finished")
	}

	result.Duration = time.Since(result.Started)
	return result, nil
}

// needsSucceeded reports whether every dependency of the job succeeded
func (e *Executor) needsSucceeded(name string, status map[string]Status) bool {
	for _, need := range e.pipeline.Job(name).Needs {
		if status[need] != StatusSuccess {
			return false
		}
	}
	return true
}

// markSkipped marks pending jobs whose dependencies failed or were skipped.
// It reports whether anything changed so the caller can loop to a fixpoint.
func (e *Executor) markSkipped(status map[string]Status, result *RunResult) bool {
	changed := false
	for _, job := range e.pipeline.Jobs {
		if status[job.Name] != StatusPending {
			continue
		}
		for _, need := range job.Needs {
			if status[need] == StatusFailed || status[need] == StatusSkipped {
				status[job.Name] = StatusSkipped
				result.Jobs = append(result.Jobs, JobResult{Name: job.Name, Status: StatusSkipped})
				e.log.WithFields(logger.Fields{"job": job.Name, "needs": need}).Warn("Job skipped, dependency did not succeed")
				changed = true
				break
			}
		}
	}
	return changed
}

// runJob expands the job matrix and runs the entries concurrently. Every
// entry takes its own worker slot, so the pool bounds entries across jobs.
func (e *Executor) runJob(ctx context.Context, sem chan struct{}, job *Job, done chan<- JobResult) {
	defer helper.RecoverPanic(e.log, "job-"+job.Name)

	start := time.Now()
	jr := JobResult{Name: job.Name, Status: StatusRunning}

	entries, err := job.Expand()
	if err != nil {
		e.log.WithError(err).Errorf("Failed to expand matrix for job %s", job.Name)
		jr.Status = StatusFailed
		jr.Duration = time.Since(start)
		done <- jr
		return
	}

	jr.Entries = make([]EntryResult, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry MatrixEntry) {
			defer wg.Done()
			defer helper.RecoverPanic(e.log, fmt.Sprintf("job-%s-%s", job.Name, entry.Slug()))

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				jr.Entries[i] = EntryResult{Entry: entry, Status: StatusSkipped}
				return
			}
			defer func() { <-sem }()

			jr.Entries[i] = e.runEntry(ctx, job, entry)
		}(i, entry)
	}
	wg.Wait()

	// A failed entry fails the job; entries that only got skipped (context
	// cancellation) leave the job skipped, not failed
	jr.Status = StatusSuccess
	for _, er := range jr.Entries {
		if er.Status == StatusFailed {
			jr.Status = StatusFailed
			break
		}
		if er.Status == StatusSkipped {
			jr.Status = StatusSkipped
		}
	}
	jr.Duration = time.Since(start)
	done <- jr
}

// runEntry runs the steps of one matrix entry in sequence. The first failed
// step aborts the entry and the remaining steps are recorded as skipped.
func (e *Executor) runEntry(ctx context.Context, job *Job, entry MatrixEntry) EntryResult {
	er := EntryResult{
		Entry:  entry,
		Status: StatusSuccess,
		Steps:  make([]StepResult, 0, len(job.Steps)),
	}

	session := e.runner.Begin(job.Name, entry)
	log := e.log.WithFields(logger.Fields{"job": job.Name, "entry": entry.Slug()})

	for _, step := range job.Steps {
		if er.Status == StatusFailed || ctx.Err() != nil {
			er.Steps = append(er.Steps, StepResult{Name: step.Label(), Status: StatusSkipped})
			continue
		}

		log.WithField("step", step.Label()).Info("Running step")
		stepStart := time.Now()
		err := session.RunStep(ctx, step)
		sr := StepResult{
			Name:     step.Label(),
			Status:   StatusSuccess,
			Duration: time.Since(stepStart),
		}

		if err != nil {
			sr.Status = StatusFailed
			sr.Error = err.Error()
			er.Status = StatusFailed
			log.WithError(err).Errorf("Step %s failed", step.Label())
		}
		er.Steps = append(er.Steps, sr)
	}

	if ctx.Err() != nil && er.Status != StatusFailed {
		er.Status = StatusSkipped
	}
	return er
}
