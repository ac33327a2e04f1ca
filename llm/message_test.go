package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleSystem.IsValid())
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleAssistant.IsValid())
	assert.False(t, Role("tool").IsValid())
}

func TestMessage_IsValid(t *testing.T) {
	assert.True(t, System("rules").IsValid())
	assert.True(t, User("hi").IsValid())
	assert.True(t, Assistant("hello").IsValid())
	assert.False(t, Message{Role: RoleUser}.IsValid())
	assert.False(t, Message{Role: "other", Content: "x"}.IsValid())
}

func TestCompletionOptions(t *testing.T) {
	req := NewCompletionRequest(
		[]Message{User("x")},
		WithTemperature(0.2),
		WithMaxTokens(100),
		WithStopSequences("END"),
	)

	assert.Equal(t, 0.2, *req.Temperature)
	assert.Equal(t, 100, *req.MaxTokens)
	assert.Equal(t, []string{"END"}, req.Stop)
}

func TestTokenUsage_Add(t *testing.T) {
	a := TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
	b := TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
	sum := a.Add(b)
	assert.Equal(t, TokenUsage{InputTokens: 11, OutputTokens: 22, TotalTokens: 33}, sum)
}
