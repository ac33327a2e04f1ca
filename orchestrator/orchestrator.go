package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/llm"
	"github.com/qualifire-dev/rogue/transport"
	"github.com/qualifire-dev/rogue/types"
)

// Defaults for orchestrator behavior.
const (
	DefaultSubscriberBuffer = 64
	DefaultRetention        = time.Hour
	DefaultSweepInterval    = time.Minute
	DefaultTimeoutSeconds   = 600
	DefaultJudgeBaseURL     = "https://api.openai.com/v1"
)

// Bridge delivery runs on its own goroutine so a slow Redis connection
// never stalls event producers holding a job's lock.
const (
	bridgeQueueSize      = 256
	bridgePublishTimeout = 5 * time.Second
)

// Options configures an Orchestrator.
type Options struct {
	// SubscriberBuffer is the per-subscriber event buffer size
	// (default 64). Overflow drops the oldest buffered event.
	SubscriberBuffer int

	// Retention is how long terminal jobs stay in the registry
	// (default 1h).
	Retention time.Duration

	// SweepInterval is how often the retention sweep runs (default 1m).
	SweepInterval time.Duration

	// MaxConcurrentJobs bounds jobs running at once. Zero means unbounded.
	MaxConcurrentJobs int

	// JudgeBaseURL is the OpenAI-compatible API base for judge and
	// evaluator LLM calls.
	JudgeBaseURL string

	// NewTransport builds the transport for a job. Defaults to
	// transport.New; tests inject in-process targets here.
	NewTransport func(cfg types.AgentConfig) (transport.Transport, error)

	// NewLLMClient builds the judge/evaluator client for a job. Defaults
	// to an OpenAI-compatible HTTP client against JudgeBaseURL.
	NewLLMClient func(model, apiKey string) (llm.Client, error)

	// Bridge optionally mirrors every event to Redis.
	Bridge *EventBridge

	// Logger records orchestrator diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator owns the job registry and runs evaluation jobs.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer

	mu   sync.RWMutex
	jobs map[string]*jobHandle

	jobSlots chan struct{}

	stopSweep chan struct{}
	sweepDone chan struct{}

	bridgeCh   chan Event
	stopBridge chan struct{}
	bridgeDone chan struct{}

	scenariosCompleted otelmetric.Int64Counter
	scenariosFailed    otelmetric.Int64Counter
	jobsFinished       otelmetric.Int64Counter
}

// jobHandle is the registry entry for one job. Its mutex guards the job
// snapshot, the subscriber set, and event delivery.
type jobHandle struct {
	mu          sync.Mutex
	job         types.EvaluationJob
	cancel      context.CancelFunc
	cancelAsked bool
	subscribers map[string]chan Event
	finalEvent  *Event
}

// New creates an Orchestrator and starts its retention sweep.
func New(opts Options) *Orchestrator {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.JudgeBaseURL == "" {
		opts.JudgeBaseURL = DefaultJudgeBaseURL
	}
	if opts.NewTransport == nil {
		opts.NewTransport = transport.New
	}
	if opts.NewLLMClient == nil {
		baseURL := opts.JudgeBaseURL
		opts.NewLLMClient = func(model, apiKey string) (llm.Client, error) {
			return llm.NewHTTPClient(llm.HTTPClientOptions{
				BaseURL: baseURL,
				APIKey:  apiKey,
				Model:   model,
			})
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	o := &Orchestrator{
		opts:      opts,
		logger:    opts.Logger,
		tracer:    otel.Tracer("rogue/orchestrator"),
		jobs:      make(map[string]*jobHandle),
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	if opts.MaxConcurrentJobs > 0 {
		o.jobSlots = make(chan struct{}, opts.MaxConcurrentJobs)
	}

	meter := otel.Meter("rogue/orchestrator")
	o.scenariosCompleted, _ = meter.Int64Counter("rogue.scenarios.completed")
	o.scenariosFailed, _ = meter.Int64Counter("rogue.scenarios.failed")
	o.jobsFinished, _ = meter.Int64Counter("rogue.jobs.finished")

	if opts.Bridge != nil {
		o.bridgeCh = make(chan Event, bridgeQueueSize)
		o.stopBridge = make(chan struct{})
		o.bridgeDone = make(chan struct{})
		go o.bridgePump()
	}

	go o.sweepLoop()

	return o
}

// Submit validates the request, registers a pending job, and starts it in
// the background. The returned snapshot reflects the pending state.
func (o *Orchestrator) Submit(req types.EvaluationRequest) (types.EvaluationJob, error) {
	if err := req.Validate(); err != nil {
		return types.EvaluationJob{}, rogue.E("Orchestrator.Submit", rogue.KindValidation, err)
	}

	job := types.EvaluationJob{
		JobID:     uuid.NewString(),
		Status:    types.JobStatusPending,
		CreatedAt: time.Now().UTC(),
		Request:   req,
	}

	handle := &jobHandle{
		job:         job,
		subscribers: make(map[string]chan Event),
	}

	o.mu.Lock()
	o.jobs[job.JobID] = handle
	o.mu.Unlock()

	go o.run(handle)

	return job, nil
}

// Get returns a snapshot of the job.
func (o *Orchestrator) Get(jobID string) (types.EvaluationJob, error) {
	handle, err := o.handle(jobID)
	if err != nil {
		return types.EvaluationJob{}, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return handle.job, nil
}

// List returns job snapshots, newest first, optionally filtered by status
// and paginated by limit/offset. A zero limit means no limit.
func (o *Orchestrator) List(status types.JobStatus, limit, offset int) []types.EvaluationJob {
	o.mu.RLock()
	handles := make([]*jobHandle, 0, len(o.jobs))
	for _, h := range o.jobs {
		handles = append(handles, h)
	}
	o.mu.RUnlock()

	jobs := make([]types.EvaluationJob, 0, len(handles))
	for _, h := range handles {
		h.mu.Lock()
		job := h.job
		h.mu.Unlock()
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })

	if offset >= len(jobs) {
		return nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// Cancel requests cancellation of a job. It is idempotent and a no-op on
// terminal jobs.
func (o *Orchestrator) Cancel(jobID string) error {
	handle, err := o.handle(jobID)
	if err != nil {
		return err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.job.Status.IsTerminal() {
		return nil
	}
	// A pending job has no cancel func yet; the runner observes
	// cancelAsked on startup.
	handle.cancelAsked = true
	if handle.cancel != nil {
		handle.cancel()
	}
	return nil
}

// Subscribe attaches to a job's event stream. The returned cancel func
// detaches and closes the channel. Subscribing to a terminal job yields
// its final job_update followed by channel close.
func (o *Orchestrator) Subscribe(jobID string) (<-chan Event, func(), error) {
	handle, err := o.handle(jobID)
	if err != nil {
		return nil, nil, err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	ch := make(chan Event, o.opts.SubscriberBuffer)

	if handle.job.Status.IsTerminal() {
		if handle.finalEvent != nil {
			ch <- *handle.finalEvent
		}
		close(ch)
		return ch, func() {}, nil
	}

	id := uuid.NewString()
	handle.subscribers[id] = ch

	cancel := func() {
		handle.mu.Lock()
		defer handle.mu.Unlock()
		if sub, ok := handle.subscribers[id]; ok {
			delete(handle.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

// Close stops the retention sweep and cancels all running jobs.
func (o *Orchestrator) Close() {
	close(o.stopSweep)
	<-o.sweepDone

	o.mu.RLock()
	handles := make([]*jobHandle, 0, len(o.jobs))
	for _, h := range o.jobs {
		handles = append(handles, h)
	}
	o.mu.RUnlock()

	for _, h := range handles {
		h.mu.Lock()
		h.cancelAsked = true
		if h.cancel != nil {
			h.cancel()
		}
		h.mu.Unlock()
	}

	if o.bridgeCh != nil {
		close(o.stopBridge)
		<-o.bridgeDone
	}
}

func (o *Orchestrator) handle(jobID string) (*jobHandle, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	handle, ok := o.jobs[jobID]
	if !ok {
		return nil, rogue.E("Orchestrator", rogue.KindValidation, rogue.ErrJobNotFound)
	}
	return handle, nil
}

// publish delivers an event to every subscriber, dropping each full
// subscriber's oldest event instead of blocking. Must be called with
// handle.mu held.
func (o *Orchestrator) publishLocked(handle *jobHandle, ev Event) {
	for id, ch := range handle.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case dropped := <-ch:
				o.logger.Warn("subscriber buffer full, dropping oldest event",
					"job_id", ev.JobID, "subscriber", id, "dropped_type", dropped.Type)
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}

	// Bridge delivery happens off-lock on the pump goroutine. A full
	// queue drops the event rather than block the producer.
	if o.bridgeCh != nil {
		select {
		case o.bridgeCh <- ev:
		default:
			o.logger.Warn("bridge queue full, dropping event",
				"job_id", ev.JobID, "type", ev.Type)
		}
	}
}

// bridgePump drains queued events to the Redis bridge. On shutdown it
// flushes what is already buffered, then exits.
func (o *Orchestrator) bridgePump() {
	defer close(o.bridgeDone)

	publish := func(ev Event) {
		ctx, cancel := context.WithTimeout(context.Background(), bridgePublishTimeout)
		defer cancel()
		if err := o.opts.Bridge.Publish(ctx, ev); err != nil {
			o.logger.Warn("event bridge publish failed", "job_id", ev.JobID, "error", err)
		}
	}

	for {
		select {
		case ev := <-o.bridgeCh:
			publish(ev)
		case <-o.stopBridge:
			for {
				select {
				case ev := <-o.bridgeCh:
					publish(ev)
				default:
					return
				}
			}
		}
	}
}

// sweepLoop drops terminal jobs once their retention window elapses.
func (o *Orchestrator) sweepLoop() {
	defer close(o.sweepDone)

	ticker := time.NewTicker(o.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopSweep:
			return
		case <-ticker.C:
			o.sweep(time.Now().UTC())
		}
	}
}

func (o *Orchestrator) sweep(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, handle := range o.jobs {
		handle.mu.Lock()
		expired := handle.job.Status.IsTerminal() &&
			handle.job.CompletedAt != nil &&
			now.Sub(*handle.job.CompletedAt) > o.opts.Retention
		handle.mu.Unlock()

		if expired {
			delete(o.jobs, id)
			o.logger.Debug("retention sweep dropped job", "job_id", id)
		}
	}
}
