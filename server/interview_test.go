package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualifire-dev/rogue/llm"
	"github.com/qualifire-dev/rogue/types"
)

type scriptedInterviewer struct {
	responses []string
	calls     int
}

func (s *scriptedInterviewer) Complete(_ context.Context, _ []llm.Message, _ ...llm.CompletionOption) (*llm.CompletionResponse, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &llm.CompletionResponse{Content: s.responses[idx], FinishReason: "stop"}, nil
}

func (s *scriptedInterviewer) Model() string { return "mock/interviewer" }

func TestInterviewManager_NoLLM(t *testing.T) {
	m := NewInterviewManager(InterviewOptions{Logger: discardLogger()})

	id, opening := m.Start(nil)
	require.NotEmpty(t, id)
	assert.Equal(t, interviewOpeningQuestion, opening)

	reply, err := m.Send(context.Background(), id, "It sells t-shirts to retail customers.")
	require.NoError(t, err)
	assert.Equal(t, interviewFallbackQuestions[0], reply)

	reply, err = m.Send(context.Background(), id, "It can read the product catalog.")
	require.NoError(t, err)
	assert.Equal(t, interviewFallbackQuestions[1], reply)

	transcript, err := m.Transcript(id)
	require.NoError(t, err)
	require.Equal(t, 5, transcript.Len())
	assert.Equal(t, types.RoleAssistant, transcript.Messages[0].Role)
	assert.Equal(t, types.RoleUser, transcript.Messages[1].Role)

	businessContext, err := m.End(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, businessContext, "It sells t-shirts to retail customers.")
	assert.Contains(t, businessContext, "It can read the product catalog.")

	_, err = m.Transcript(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInterviewManager_LLMDriven(t *testing.T) {
	m := NewInterviewManager(InterviewOptions{Logger: discardLogger()})
	client := &scriptedInterviewer{responses: []string{
		"Which payment data can it see?",
		"A retail support agent with catalog access and no payment data.",
	}}

	id, _ := m.Start(client)

	reply, err := m.Send(context.Background(), id, "It handles customer support for a shop.")
	require.NoError(t, err)
	assert.Equal(t, "Which payment data can it see?", reply)

	businessContext, err := m.End(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "A retail support agent with catalog access and no payment data.", businessContext)
}

func TestInterviewManager_UnknownSession(t *testing.T) {
	m := NewInterviewManager(InterviewOptions{Logger: discardLogger()})

	_, err := m.Send(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.End(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInterviewHTTPFlow(t *testing.T) {
	h := newHarness(t, nil)

	start := h.postJSON(t, "/api/v1/interviews", startInterviewRequest{})
	require.Equal(t, http.StatusCreated, start.StatusCode)
	startBody := decodeJSON[map[string]string](t, start)
	sessionID := startBody["session_id"]
	require.NotEmpty(t, sessionID)
	assert.Equal(t, interviewOpeningQuestion, startBody["message"])

	send := h.postJSON(t, "/api/v1/interviews/"+sessionID+"/messages",
		map[string]string{"message": "It answers shipping questions."})
	require.Equal(t, http.StatusOK, send.StatusCode)
	sendBody := decodeJSON[map[string]string](t, send)
	assert.NotEmpty(t, sendBody["message"])

	empty := h.postJSON(t, "/api/v1/interviews/"+sessionID+"/messages",
		map[string]string{"message": "   "})
	defer empty.Body.Close()
	assert.Equal(t, http.StatusBadRequest, empty.StatusCode)

	transcriptResp, err := http.Get(h.ts.URL + "/api/v1/interviews/" + sessionID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, transcriptResp.StatusCode)
	transcript := decodeJSON[struct {
		SessionID string              `json:"session_id"`
		Messages  []types.ChatMessage `json:"messages"`
	}](t, transcriptResp)
	assert.Equal(t, sessionID, transcript.SessionID)
	assert.Len(t, transcript.Messages, 3)

	endReq, err := http.NewRequest(http.MethodDelete, h.ts.URL+"/api/v1/interviews/"+sessionID, nil)
	require.NoError(t, err)
	endResp, err := http.DefaultClient.Do(endReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, endResp.StatusCode)
	endBody := decodeJSON[map[string]string](t, endResp)
	assert.Contains(t, endBody["business_context"], "It answers shipping questions.")

	gone, err := http.Get(h.ts.URL + "/api/v1/interviews/" + sessionID)
	require.NoError(t, err)
	defer gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}
