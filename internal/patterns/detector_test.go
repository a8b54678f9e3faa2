package patterns

import (
	"context"
	"testing"

	"chat-automation/internal/automation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detect(t *testing.T, contents ...string) *automation.PatternResult {
	t.Helper()
	messages := make([]automation.ConversationMessage, 0, len(contents))
	for _, c := range contents {
		messages = append(messages, automation.ConversationMessage{Role: "user", Content: c})
	}
	result, err := NewDetector().DetectPatterns(context.Background(), "conv-1", "user-1", messages)
	require.NoError(t, err)
	return result
}

func patternTypes(result *automation.PatternResult) []string {
	types := make([]string, 0, len(result.Patterns))
	for _, p := range result.Patterns {
		types = append(types, p.Type)
	}
	return types
}

func TestDetectQuestion(t *testing.T) {
	result := detect(t, "How do I reset my password?")
	assert.Contains(t, patternTypes(result), "question")
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "suggest_response", result.Suggestions[0].Action.Type)
}

func TestDetectQuestionWithoutQuestionMark(t *testing.T) {
	result := detect(t, "how can I export my data")
	assert.Contains(t, patternTypes(result), "question")
}

func TestDetectGreeting(t *testing.T) {
	result := detect(t, "Hello there")
	assert.Contains(t, patternTypes(result), "greeting")
}

func TestDetectSupportRequest(t *testing.T) {
	result := detect(t, "My order arrived broken and I want a refund")
	assert.Contains(t, patternTypes(result), "support_request")
}

func TestDetectRepeatedMessage(t *testing.T) {
	result := detect(t, "is anyone there", "Is anyone there", "  is anyone THERE ")
	assert.Contains(t, patternTypes(result), "repeated_message")
}

func TestDetectNothing(t *testing.T) {
	result := detect(t, "the weather seems fine today")
	assert.Empty(t, result.Patterns)
	assert.Empty(t, result.Suggestions)
}

func TestDetectEmptyConversation(t *testing.T) {
	result, err := NewDetector().DetectPatterns(context.Background(), "conv-1", "user-1", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Patterns)
	assert.Empty(t, result.Suggestions)
	assert.Greater(t, result.ConfidenceThreshold, 0.0)
}

func TestAllSuggestionsHaveIDs(t *testing.T) {
	result := detect(t, "hello, my account is broken, can you help me?")
	require.NotEmpty(t, result.Suggestions)
	for _, s := range result.Suggestions {
		assert.NotEmpty(t, s.ID)
		assert.Greater(t, s.Confidence, 0.0)
	}
}
