package driver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/llm"
	"github.com/qualifire-dev/rogue/metric"
	"github.com/qualifire-dev/rogue/transport"
	"github.com/qualifire-dev/rogue/types"
)

// Defaults for conversation execution.
const (
	DefaultMaxTurns   = 3
	DefaultMaxRetries = 3

	retryBaseDelay = 500 * time.Millisecond
)

// Options configures a Driver.
type Options struct {
	// Transport dispatches messages to the agent under test. Required.
	Transport transport.Transport

	// Evaluator generates the adversarial user messages. Nil degrades to
	// single-turn conversations sending the scenario text verbatim.
	Evaluator llm.Client

	// Judge backs the scenario metrics. A nil or unconfigured judge makes
	// judge-backed metrics report their explicit configuration-gap pass.
	Judge *metric.Judge

	// MaxTurns bounds conversation turns per scenario (default 3).
	MaxTurns int

	// MaxRetries bounds transport retry attempts per turn (default 3).
	MaxRetries int

	// OnMessage, when set, observes every transcript message as it is
	// recorded. The orchestrator uses it to emit chat_update events.
	OnMessage func(types.ChatMessage)

	// Logger records turn-level diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Driver runs scenario conversations to a conclusive verdict.
type Driver struct {
	transport  transport.Transport
	evaluator  llm.Client
	judge      *metric.Judge
	maxTurns   int
	maxRetries int
	onMessage  func(types.ChatMessage)
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New creates a Driver, applying defaults for zero options.
func New(opts Options) *Driver {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Driver{
		transport:  opts.Transport,
		evaluator:  opts.Evaluator,
		judge:      opts.Judge,
		maxTurns:   opts.MaxTurns,
		maxRetries: opts.MaxRetries,
		onMessage:  opts.OnMessage,
		logger:     opts.Logger,
		tracer:     otel.Tracer("rogue/driver"),
	}
}

// RunScenario conducts one conversation for the scenario and returns its
// judged transcript. Errors are folded into the evaluation: transport
// failure after retries yields passed=false with a transport reason, and
// cancellation preserves the partial transcript.
func (d *Driver) RunScenario(ctx context.Context, sc types.Scenario) types.ConversationEvaluation {
	ctx, span := d.tracer.Start(ctx, "driver.scenario",
		trace.WithAttributes(attribute.Int("max_turns", d.maxTurns)))
	defer span.End()

	sessionID := uuid.NewString()
	metrics := MetricsFor(sc, d.judge)

	var history types.ChatHistory
	maxTurns := d.maxTurns
	if d.evaluator == nil {
		maxTurns = 1
	}

	var passReasons []string

	for turn := 0; turn < maxTurns; turn++ {
		if ctx.Err() != nil {
			return d.cancelled(history)
		}

		userMsg, err := d.nextMessage(ctx, sc, history)
		if err != nil {
			if ctx.Err() != nil {
				return d.cancelled(history)
			}
			d.logger.Warn("evaluator failed to produce a message, sending scenario text",
				"error", err, "turn", turn)
			userMsg = sc.Scenario
		}
		d.record(&history, types.ChatMessage{Role: types.RoleUser, Content: userMsg})

		reply, err := d.sendWithRetry(ctx, userMsg, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return d.cancelled(history)
			}
			return types.ConversationEvaluation{
				Messages: history,
				Passed:   false,
				Reason:   "transport error: " + err.Error(),
			}
		}
		if reply.Status == transport.StatusError {
			return types.ConversationEvaluation{
				Messages: history,
				Passed:   false,
				Reason:   "transport error: agent reported failure: " + reply.Text,
			}
		}
		d.record(&history, types.ChatMessage{Role: types.RoleAssistant, Content: reply.Text})

		tc := metric.TestCase{Input: userMsg, ActualOutput: reply.Text}
		turnReasons, failed := d.score(ctx, metrics, tc)
		if failed {
			return types.ConversationEvaluation{
				Messages: history,
				Passed:   false,
				Reason:   strings.Join(turnReasons, "; "),
			}
		}
		passReasons = turnReasons
	}

	// Turn budget exhausted with no metric failure: conclusive success.
	return types.ConversationEvaluation{
		Messages: history,
		Passed:   true,
		Reason:   strings.Join(passReasons, "; "),
	}
}

// score runs every metric on the turn. It returns the collected reasons
// and whether any metric found vulnerability evidence. On failure only the
// failing reasons are returned.
func (d *Driver) score(ctx context.Context, metrics []metric.Metric, tc metric.TestCase) ([]string, bool) {
	var reasons, failures []string

	for _, m := range metrics {
		res, err := m.Measure(ctx, tc)
		if err != nil {
			d.logger.Warn("metric failed, skipping for this turn", "metric", m.Name(), "error", err)
			continue
		}
		reasons = append(reasons, res.Reason)
		if !res.Passed() {
			failures = append(failures, res.Reason)
		}
	}

	if len(failures) > 0 {
		return failures, true
	}
	return reasons, false
}

func (d *Driver) sendWithRetry(ctx context.Context, message, sessionID string) (transport.Reply, error) {
	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * retryBaseDelay
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				kind := rogue.KindCancelled
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					kind = rogue.KindTimeout
				}
				return transport.Reply{}, rogue.E("Driver.Send", kind, ctx.Err())
			}
		}

		reply, err := d.transport.Send(ctx, message, sessionID)
		if err != nil {
			lastErr = err
			d.logger.Warn("transport send failed", "attempt", attempt+1, "error", err)
			continue
		}
		return reply, nil
	}
	return transport.Reply{}, rogue.E("Driver.Send", rogue.KindTransport, lastErr)
}

func (d *Driver) record(history *types.ChatHistory, msg types.ChatMessage) {
	history.Add(msg)
	if d.onMessage != nil {
		if last, ok := history.Last(); ok {
			d.onMessage(last)
		}
	}
}

// cancelled folds a cancellation into an evaluation that preserves the
// partial transcript without claiming a vulnerability.
func (d *Driver) cancelled(history types.ChatHistory) types.ConversationEvaluation {
	return types.ConversationEvaluation{
		Messages: history,
		Passed:   true,
		Reason:   "evaluation cancelled before completion",
	}
}
