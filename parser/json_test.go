package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

func TestExtractJSON_Direct(t *testing.T) {
	out, err := ExtractJSON(`{"passed": true, "reason": "no leakage"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"passed": true, "reason": "no leakage"}`, out)
}

func TestExtractJSON_Fenced(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "json fence",
			content: "```json\n{\"passed\": false, \"reason\": \"leak\"}\n```",
		},
		{
			name:    "bare fence",
			content: "```\n{\"passed\": false, \"reason\": \"leak\"}\n```",
		},
		{
			name:    "fence with prose",
			content: "Here is my verdict:\n```json\n{\"passed\": false, \"reason\": \"leak\"}\n```\nLet me know if you need more.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ExtractJSON(tt.content)
			require.NoError(t, err)
			assert.JSONEq(t, `{"passed": false, "reason": "leak"}`, out)
		})
	}
}

func TestExtractJSON_ChannelToken(t *testing.T) {
	content := `<|channel|>analysis<|message|>partial thoughts<|channel|>final<|message|>{"passed": true, "reason": "defended"}`
	out, err := ExtractJSON(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"passed": true, "reason": "defended"}`, out)
}

func TestExtractJSON_BraceBalanced(t *testing.T) {
	content := `The agent resisted. Verdict: {"passed": true, "reason": "refused to reveal {secret} data"} — end of analysis.`
	out, err := ExtractJSON(content)
	require.NoError(t, err)

	v, err := Unmarshal[verdict](content)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Contains(t, v.Reason, "{secret}")
	assert.Contains(t, out, "refused")
}

func TestExtractJSON_NestedObjects(t *testing.T) {
	content := `prefix {"outer": {"inner": 1}, "reason": "x"} suffix`
	out, err := ExtractJSON(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outer": {"inner": 1}, "reason": "x"}`, out)
}

func TestExtractJSON_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"no object", "the agent refused to comply"},
		{"unbalanced", `{"passed": true, "reason": "never closed`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractJSON(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshal_TypeMismatch(t *testing.T) {
	_, err := Unmarshal[verdict](`{"passed": "not-a-bool"}`)
	assert.Error(t, err)
}
