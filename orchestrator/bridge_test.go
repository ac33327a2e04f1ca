package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualifire-dev/rogue/types"
)

func newTestBridge(t *testing.T) *EventBridge {
	t.Helper()
	mr := miniredis.RunT(t)
	bridge, err := NewEventBridge(EventBridgeOptions{
		Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { bridge.Close() })
	return bridge
}

func TestEventBridge_PublishSubscribe(t *testing.T) {
	bridge := newTestBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bridge.Subscribe(ctx, "job-1")
	require.NoError(t, err)

	sent := jobUpdateEvent("job-1", JobUpdate{Status: types.JobStatusRunning, Progress: 0.5})
	require.NoError(t, bridge.Publish(ctx, sent))

	select {
	case ev := <-events:
		assert.Equal(t, EventTypeJobUpdate, ev.Type)
		assert.Equal(t, "job-1", ev.JobID)
		// Payloads cross the wire as JSON, so Data arrives as a map.
		data, ok := ev.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "running", data["status"])
		assert.Equal(t, 0.5, data["progress"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridged event")
	}
}

func TestEventBridge_ChannelsAreJobScoped(t *testing.T) {
	bridge := newTestBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bridge.Subscribe(ctx, "job-a")
	require.NoError(t, err)

	require.NoError(t, bridge.Publish(ctx, jobUpdateEvent("job-b", JobUpdate{Status: types.JobStatusRunning})))
	require.NoError(t, bridge.Publish(ctx, jobUpdateEvent("job-a", JobUpdate{Status: types.JobStatusCompleted, Progress: 1})))

	select {
	case ev := <-events:
		assert.Equal(t, "job-a", ev.JobID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridged event")
	}
}

func TestEventBridge_SubscribeClosesOnCancel(t *testing.T) {
	bridge := newTestBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bridge.Subscribe(ctx, "job-1")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close after context cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}
}

func TestEventBridge_MalformedPayloadSkipped(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bridge, err := NewEventBridge(EventBridgeOptions{Client: client, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { bridge.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bridge.Subscribe(ctx, "job-1")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, bridge.channel("job-1"), "not json").Err())
	require.NoError(t, bridge.Publish(ctx, jobUpdateEvent("job-1", JobUpdate{Status: types.JobStatusCompleted, Progress: 1})))

	select {
	case ev := <-events:
		assert.Equal(t, EventTypeJobUpdate, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the valid event")
	}
}

func TestNewEventBridge_BadURL(t *testing.T) {
	_, err := NewEventBridge(EventBridgeOptions{URL: "://not-a-url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse Redis URL")
}

func TestOrchestratorMirrorsEventsToBridge(t *testing.T) {
	bridge := newTestBridge(t)

	release := make(chan struct{})
	o := newTestOrchestrator(t, Options{
		NewTransport: gatedTransport(release),
		Bridge:       bridge,
	})

	job, err := o.Submit(testRequest(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bridge.Subscribe(ctx, job.JobID)
	require.NoError(t, err)

	close(release)
	waitTerminal(t, o, job.JobID)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			require.Equal(t, job.JobID, ev.JobID)
			if ev.Type == EventTypeJobUpdate {
				data := ev.Data.(map[string]any)
				if data["status"] == string(types.JobStatusCompleted) {
					return
				}
			}
		case <-deadline:
			t.Fatal("never saw the terminal event on the bridge")
		}
	}
}
