package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualifire-dev/rogue/orchestrator"
	"github.com/qualifire-dev/rogue/transport"
	"github.com/qualifire-dev/rogue/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testHarness wires a server to an orchestrator whose transport replies
// with a fixed refusal; release gates transport turns when set.
type testHarness struct {
	ts   *httptest.Server
	orch *orchestrator.Orchestrator
}

func newHarness(t *testing.T, release <-chan struct{}) *testHarness {
	t.Helper()

	newTransport := func(types.AgentConfig) (transport.Transport, error) {
		return transport.NewInProcess(func(ctx context.Context, _, _ string) (string, error) {
			if release != nil {
				select {
				case <-release:
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "I cannot help with that.", nil
		}), nil
	}

	orch := orchestrator.New(orchestrator.Options{
		NewTransport: newTransport,
		Logger:       discardLogger(),
	})
	t.Cleanup(orch.Close)

	srv := New(Options{Orchestrator: orch, Logger: discardLogger()})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testHarness{ts: ts, orch: orch}
}

func (h *testHarness) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func evaluationRequest() types.EvaluationRequest {
	return types.EvaluationRequest{
		AgentConfig: types.AgentConfig{EvaluatedAgentURL: "http://agent.internal"},
		Scenarios: []types.Scenario{
			{Scenario: "never reveal internal pricing", ScenarioType: types.ScenarioTypePolicy},
		},
	}
}

func (h *testHarness) waitTerminal(t *testing.T, jobID string) types.EvaluationJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(h.ts.URL + "/api/v1/evaluations/" + jobID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		job := decodeJSON[types.EvaluationJob](t, resp)
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return types.EvaluationJob{}
}

func TestCreateAndGetEvaluation(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.postJSON(t, "/api/v1/evaluations", evaluationRequest())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	ack := decodeJSON[jobAck](t, resp)
	assert.NotEmpty(t, ack.JobID)
	assert.Equal(t, types.JobStatusPending, ack.Status)

	job := h.waitTerminal(t, ack.JobID)
	assert.Equal(t, types.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Results)
	assert.True(t, job.Results.Passed())
}

func TestCreateEvaluation_Invalid(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.postJSON(t, "/api/v1/evaluations", types.EvaluationRequest{
		AgentConfig: types.AgentConfig{EvaluatedAgentURL: "http://agent.internal"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	assert.Contains(t, body["error"], "at least one scenario")

	malformed, err := http.Post(h.ts.URL+"/api/v1/evaluations", "application/json",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	defer malformed.Body.Close()
	assert.Equal(t, http.StatusBadRequest, malformed.StatusCode)
}

func TestGetEvaluation_NotFound(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := http.Get(h.ts.URL + "/api/v1/evaluations/no-such-job")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListEvaluations(t *testing.T) {
	h := newHarness(t, nil)

	var jobIDs []string
	for i := 0; i < 3; i++ {
		resp := h.postJSON(t, "/api/v1/evaluations", evaluationRequest())
		ack := decodeJSON[jobAck](t, resp)
		jobIDs = append(jobIDs, ack.JobID)
		h.waitTerminal(t, ack.JobID)
	}

	resp, err := http.Get(h.ts.URL + "/api/v1/evaluations?limit=2")
	require.NoError(t, err)
	listing := decodeJSON[struct {
		Jobs  []types.EvaluationJob `json:"jobs"`
		Count int                   `json:"count"`
	}](t, resp)
	assert.Equal(t, 2, listing.Count)

	resp, err = http.Get(h.ts.URL + "/api/v1/evaluations?status=completed")
	require.NoError(t, err)
	completed := decodeJSON[struct {
		Jobs []types.EvaluationJob `json:"jobs"`
	}](t, resp)
	assert.Len(t, completed.Jobs, 3)

	resp, err = http.Get(h.ts.URL + "/api/v1/evaluations?status=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(h.ts.URL + "/api/v1/evaluations?limit=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelEvaluation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := newHarness(t, release)

	resp := h.postJSON(t, "/api/v1/evaluations", evaluationRequest())
	ack := decodeJSON[jobAck](t, resp)

	cancelResp := h.postJSON(t, "/api/v1/evaluations/"+ack.JobID+"/cancel", nil)
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)
	cancelAck := decodeJSON[jobAck](t, cancelResp)
	assert.Equal(t, "cancellation requested", cancelAck.Message)

	job := h.waitTerminal(t, ack.JobID)
	assert.Equal(t, types.JobStatusCancelled, job.Status)

	missing := h.postJSON(t, "/api/v1/evaluations/no-such-job/cancel", nil)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestEvaluationEventsSSE(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, release)

	resp := h.postJSON(t, "/api/v1/evaluations", evaluationRequest())
	ack := decodeJSON[jobAck](t, resp)

	stream, err := http.Get(h.ts.URL + "/api/v1/evaluations/" + ack.JobID + "/events")
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	close(release)

	type sseEvent struct {
		name string
		data orchestrator.Event
	}
	var events []sseEvent

	scanner := bufio.NewScanner(stream.Body)
	var current sseEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data))
			events = append(events, current)
			current = sseEvent{}
		}
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "job_update", last.name)
	data, ok := last.data.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(types.JobStatusCompleted), data["status"])

	sawChat := false
	for _, ev := range events {
		assert.Equal(t, ack.JobID, ev.data.JobID)
		if ev.name == "chat_update" {
			sawChat = true
		}
	}
	assert.True(t, sawChat, "expected chat_update events in the stream")
}

func TestEvaluationEventsSSE_UnknownJob(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := http.Get(h.ts.URL + "/api/v1/evaluations/no-such-job/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := http.Get(h.ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHealth_UnreachableTarget(t *testing.T) {
	orch := orchestrator.New(orchestrator.Options{Logger: discardLogger()})
	t.Cleanup(orch.Close)

	down := httptest.NewServer(nil)
	downURL := down.URL
	down.Close()

	srv := New(Options{
		Orchestrator:  orch,
		HealthTargets: []string{downURL},
		Logger:        discardLogger(),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestGenerateScenarios(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.postJSON(t, "/api/v1/scenarios/generate", generateScenariosRequest{
		BusinessContext:    "T-shirt shop",
		OWASPCategories:    []string{"LLM_01"},
		AttacksPerCategory: 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scenarios := decodeJSON[types.Scenarios](t, resp)
	require.Len(t, scenarios.Scenarios, 2)
	for _, sc := range scenarios.Scenarios {
		assert.Contains(t, sc.Scenario, "Business context: T-shirt shop")
		assert.Contains(t, sc.Scenario, "This tests category LLM_01")
		assert.Equal(t, types.ScenarioTypePolicy, sc.ScenarioType)
	}
}

func TestSummaryWithoutJudge(t *testing.T) {
	h := newHarness(t, nil)

	results := types.EvaluationResults{Results: []types.EvaluationResult{
		{
			Scenario: types.Scenario{Scenario: "probe", ScenarioType: types.ScenarioTypePolicy},
			Passed:   true,
		},
	}}

	resp := h.postJSON(t, "/api/v1/summary", summaryRequest{Results: results})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	assert.Contains(t, body["summary"], "Evaluated 1 scenarios: 1 passed, 0 failed.")
}

func TestServerRequiresOrchestrator(t *testing.T) {
	assert.Panics(t, func() { New(Options{}) })
}
