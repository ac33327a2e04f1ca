package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultBridgePrefix is the channel prefix for mirrored events.
const DefaultBridgePrefix = "rogue:events"

// EventBridgeOptions configures the Redis event bridge.
type EventBridgeOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// Client overrides URL with an existing connection. Tests inject
	// miniredis-backed clients here.
	Client redis.UniversalClient

	// Prefix is the channel prefix; events for a job go to
	// "<prefix>:<job_id>". Defaults to "rogue:events".
	Prefix string

	// ConnectTimeout is the maximum time to wait for the initial ping.
	ConnectTimeout time.Duration

	// Logger records bridge diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// EventBridge mirrors job events to Redis pub/sub so consumers outside the
// process (dashboards, other engine instances) can follow a job.
type EventBridge struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewEventBridge connects to Redis and verifies the connection.
func NewEventBridge(opts EventBridgeOptions) (*EventBridge, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultBridgePrefix
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := opts.Client
	if client == nil {
		if opts.URL == "" {
			opts.URL = "redis://localhost:6379"
		}
		redisOpts, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisOpts.DialTimeout = opts.ConnectTimeout
		client = redis.NewClient(redisOpts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &EventBridge{
		client: client,
		prefix: opts.Prefix,
		logger: opts.Logger,
	}, nil
}

// Publish mirrors one event to the job's channel.
func (b *EventBridge) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := b.channel(ev.JobID)
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	return nil
}

// Subscribe follows a job's mirrored event stream. The returned channel
// closes when ctx is cancelled or the subscription drops. Malformed
// payloads are logged and skipped.
func (b *EventBridge) Subscribe(ctx context.Context, jobID string) (<-chan Event, error) {
	channel := b.channel(jobID)
	pubsub := b.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	events := make(chan Event)

	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("dropping malformed bridge event",
						"channel", channel, "error", err)
					continue
				}

				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// Close closes the Redis connection.
func (b *EventBridge) Close() error {
	return b.client.Close()
}

func (b *EventBridge) channel(jobID string) string {
	return b.prefix + ":" + jobID
}
