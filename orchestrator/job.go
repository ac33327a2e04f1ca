package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/driver"
	"github.com/qualifire-dev/rogue/llm"
	"github.com/qualifire-dev/rogue/metric"
	"github.com/qualifire-dev/rogue/types"
)

// run executes one job to its terminal state.
func (o *Orchestrator) run(handle *jobHandle) {
	handle.mu.Lock()
	jobID := handle.job.JobID
	req := handle.job.Request
	handle.mu.Unlock()

	// A global job bound, when configured, queues the job in pending.
	if o.jobSlots != nil {
		o.jobSlots <- struct{}{}
		defer func() { <-o.jobSlots }()
	}

	cfg := req.AgentConfig
	timeoutSeconds := cfg.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	handle.mu.Lock()
	if handle.cancelAsked {
		o.finishLocked(handle, types.JobStatusCancelled, "", nil)
		handle.mu.Unlock()
		return
	}
	handle.cancel = cancel
	handle.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "orchestrator.job",
		trace.WithAttributes(
			attribute.String("job_id", jobID),
			attribute.Int("scenarios", len(req.Scenarios)),
		))
	defer span.End()

	o.setRunning(handle)

	tr, err := o.opts.NewTransport(cfg)
	if err != nil {
		o.finish(handle, types.JobStatusFailed, fmt.Sprintf("transport setup failed: %v", err), nil)
		return
	}
	defer tr.Close()

	var judgeClient llm.Client
	if cfg.JudgeLLM != "" {
		judgeClient, err = o.opts.NewLLMClient(cfg.JudgeLLM, cfg.JudgeLLMAPIKey)
		if err != nil {
			// Judge-backed metrics surface the gap explicitly; the job
			// still runs.
			o.logger.Warn("judge LLM client setup failed, continuing without judge",
				"job_id", jobID, "error", err)
			judgeClient = nil
		}
	}
	judge := metric.NewJudge(metric.JudgeOptions{Client: judgeClient, Logger: o.logger})

	d := driver.New(driver.Options{
		Transport:  tr,
		Evaluator:  judgeClient,
		Judge:      judge,
		MaxTurns:   cfg.MaxTurns,
		MaxRetries: cfg.MaxRetries,
		Logger:     o.logger,
		OnMessage: func(msg types.ChatMessage) {
			handle.mu.Lock()
			o.publishLocked(handle, chatUpdateEvent(jobID, msg))
			handle.mu.Unlock()
		},
	})

	parallel := cfg.ParallelRuns
	if parallel <= 0 {
		parallel = 1
	}
	runs := 1
	if cfg.DeepTestMode {
		runs = parallel
	}

	total := len(req.Scenarios)
	results := &types.EvaluationResults{}
	var resultsMu sync.Mutex
	completed := 0

	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup

scheduling:
	for _, sc := range req.Scenarios {
		// No scenario starts after the cancel signal or timeout.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break scheduling
		}
		if ctx.Err() != nil {
			<-sem
			break scheduling
		}

		wg.Add(1)
		go func(sc types.Scenario) {
			defer wg.Done()
			defer func() { <-sem }()

			result := types.EvaluationResult{Scenario: sc}
			for r := 0; r < runs; r++ {
				result.Conversations = append(result.Conversations, d.RunScenario(ctx, sc))
				if ctx.Err() != nil {
					break
				}
			}
			result.Recompute()

			if result.Passed {
				o.scenariosCompleted.Add(ctx, 1)
			} else {
				o.scenariosFailed.Add(ctx, 1)
			}

			resultsMu.Lock()
			results.Add(result)
			completed++
			progress := float64(completed) / float64(total)
			resultsMu.Unlock()

			o.updateProgress(handle, progress)
		}(sc)
	}

	wg.Wait()

	handle.mu.Lock()
	cancelAsked := handle.cancelAsked
	handle.mu.Unlock()

	switch {
	case cancelAsked:
		o.finish(handle, types.JobStatusCancelled, "", results)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		o.finish(handle, types.JobStatusFailed,
			fmt.Sprintf("evaluation timed out after %d seconds", timeoutSeconds), results)
	default:
		o.finish(handle, types.JobStatusCompleted, "", results)
	}

	o.jobsFinished.Add(context.Background(), 1)
}

func (o *Orchestrator) setRunning(handle *jobHandle) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if !handle.job.Status.CanTransition(types.JobStatusRunning) {
		return
	}
	now := time.Now().UTC()
	handle.job.Status = types.JobStatusRunning
	handle.job.StartedAt = &now

	o.publishLocked(handle, jobUpdateEvent(handle.job.JobID, JobUpdate{
		Status:   types.JobStatusRunning,
		Progress: handle.job.Progress,
	}))
}

// updateProgress advances the job's monotone progress and emits a
// job_update.
func (o *Orchestrator) updateProgress(handle *jobHandle, progress float64) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.job.Status.IsTerminal() || progress <= handle.job.Progress {
		return
	}
	handle.job.Progress = progress

	o.publishLocked(handle, jobUpdateEvent(handle.job.JobID, JobUpdate{
		Status:   handle.job.Status,
		Progress: progress,
	}))
}

func (o *Orchestrator) finish(handle *jobHandle, status types.JobStatus, errMsg string, results *types.EvaluationResults) {
	handle.mu.Lock()
	defer handle.mu.Unlock()
	o.finishLocked(handle, status, errMsg, results)
}

// finishLocked moves the job to a terminal state, publishes the final
// job_update, and detaches every subscriber. Must be called with
// handle.mu held.
func (o *Orchestrator) finishLocked(handle *jobHandle, status types.JobStatus, errMsg string, results *types.EvaluationResults) {
	if handle.job.Status.IsTerminal() {
		return
	}
	if !handle.job.Status.CanTransition(status) {
		err := rogue.E("Orchestrator.finish", rogue.KindScheduler,
			fmt.Errorf("cannot transition %s to %s", handle.job.Status, status))
		o.logger.Error("invalid job status transition", "job_id", handle.job.JobID, "error", err)
		status = types.JobStatusFailed
		if errMsg == "" {
			errMsg = "internal scheduler error"
		}
	}

	now := time.Now().UTC()
	handle.job.Status = status
	handle.job.CompletedAt = &now
	handle.job.Error = errMsg
	if results != nil {
		handle.job.Results = results
	}
	if status == types.JobStatusCompleted {
		handle.job.Progress = 1
	}

	final := jobUpdateEvent(handle.job.JobID, JobUpdate{
		Status:   status,
		Progress: handle.job.Progress,
		Error:    errMsg,
	})
	o.publishLocked(handle, final)
	handle.finalEvent = &final

	// The terminal update is the last event: no further events follow.
	for id, ch := range handle.subscribers {
		delete(handle.subscribers, id)
		close(ch)
	}

	o.logger.Info("job finished",
		"job_id", handle.job.JobID, "status", status, "progress", handle.job.Progress)
}
