package automation

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"chat-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgs(contents ...string) []ConversationMessage {
	out := make([]ConversationMessage, 0, len(contents))
	for _, c := range contents {
		out = append(out, ConversationMessage{Role: "user", Content: c})
	}
	return out
}

func suggestionsWithConfidence(confidences ...float64) []Suggestion {
	out := make([]Suggestion, 0, len(confidences))
	for i, c := range confidences {
		out = append(out, Suggestion{
			ID:         string(rune('a' + i)),
			Type:       "suggest_response",
			Confidence: c,
			Action:     Action{Type: "suggest_response", Data: map[string]interface{}{"prompt": "x"}},
		})
	}
	return out
}

func TestAnalyzeDisabledNeverCallsSources(t *testing.T) {
	pattern := &fakePatternSource{result: &PatternResult{}}
	suggester := &fakeSuggestionSource{suggestions: suggestionsWithConfidence(0.9)}
	svc, _ := newTestService(t, pattern, suggester)
	userID := "user-1"

	seedWorkflow(t, svc, userID, &models.AutomationWorkflow{
		Title:       "Some workflow",
		TriggerType: "message",
		IsActive:    true,
	})
	svc.UpdateSettings(userID, json.RawMessage(`{"enabled": false}`))

	result := svc.AnalyzeConversation(context.Background(), "conv-1", userID, msgs("hello"))

	assert.Empty(t, result.Patterns)
	assert.Empty(t, result.Suggestions)
	// Workflows are still listed for the UI.
	assert.Len(t, result.Workflows, 1)
	assert.Zero(t, atomic.LoadInt32(&pattern.calls))
	assert.Zero(t, atomic.LoadInt32(&suggester.calls))
}

func TestAnalyzeFilterThenTruncate(t *testing.T) {
	suggester := &fakeSuggestionSource{suggestions: suggestionsWithConfidence(0.9, 0.3, 0.6, 0.95)}
	svc, _ := newTestService(t, nil, suggester)
	userID := "user-1"
	svc.UpdateSettings(userID, json.RawMessage(`{"confidence_threshold": 0.5, "max_suggestions_per_message": 2, "pattern_detection_enabled": false}`))

	result := svc.AnalyzeConversation(context.Background(), "conv-1", userID, msgs("anything"))

	require.Len(t, result.Suggestions, 2)
	// 0.3 filtered out; cap reached before 0.95; relative order preserved.
	assert.Equal(t, 0.9, result.Suggestions[0].Confidence)
	assert.Equal(t, 0.6, result.Suggestions[1].Confidence)
}

func TestAnalyzeNeverExceedsCap(t *testing.T) {
	suggester := &fakeSuggestionSource{suggestions: suggestionsWithConfidence(0.9, 0.9, 0.9, 0.9, 0.9, 0.9)}
	svc, _ := newTestService(t, nil, suggester)
	userID := "user-1"

	result := svc.AnalyzeConversation(context.Background(), "conv-1", userID, msgs("anything"))
	assert.LessOrEqual(t, len(result.Suggestions), DefaultSettings().MaxSuggestionsPerMessage)
}

func TestAnalyzePatternSuggestionsComeFirst(t *testing.T) {
	pattern := &fakePatternSource{result: &PatternResult{
		Patterns:    []ConversationPattern{{Type: "question", Confidence: 0.9}},
		Suggestions: []Suggestion{{ID: "pat", Type: "insert_text", Confidence: 0.8, Action: Action{Type: "insert_text"}}},
	}}
	suggester := &fakeSuggestionSource{suggestions: []Suggestion{
		{ID: "ai", Type: "suggest_response", Confidence: 0.99, Action: Action{Type: "suggest_response"}},
	}}
	svc, _ := newTestService(t, pattern, suggester)

	result := svc.AnalyzeConversation(context.Background(), "conv-1", "user-1", msgs("how do I do this?"))

	require.Len(t, result.Suggestions, 2)
	// Concatenation order is the tie-break: pattern-based first even though
	// the AI suggestion has higher confidence.
	assert.Equal(t, "pat", result.Suggestions[0].ID)
	assert.Equal(t, "ai", result.Suggestions[1].ID)
	assert.Len(t, result.Patterns, 1)
}

func TestAnalyzeSurvivesFailingSources(t *testing.T) {
	pattern := &fakePatternSource{err: errors.New("pattern service down")}
	suggester := &fakeSuggestionSource{panics: true}
	svc, _ := newTestService(t, pattern, suggester)

	var result *AnalysisResult
	assert.NotPanics(t, func() {
		result = svc.AnalyzeConversation(context.Background(), "conv-1", "user-1", msgs("hello"))
	})
	assert.Empty(t, result.Suggestions)
	assert.Empty(t, result.Patterns)
}

func TestAnalyzeAutoApplyHighConfidence(t *testing.T) {
	suggester := &fakeSuggestionSource{suggestions: suggestionsWithConfidence(0.95, 0.7)}
	svc, _ := newTestService(t, nil, suggester)
	userID := "user-1"
	svc.UpdateSettings(userID, json.RawMessage(`{"auto_apply_high_confidence": true, "high_confidence_threshold": 0.9}`))

	result := svc.AnalyzeConversation(context.Background(), "conv-1", userID, msgs("anything"))

	require.Len(t, result.Suggestions, 2)
	assert.True(t, result.Suggestions[0].AutoApply)
	assert.False(t, result.Suggestions[1].AutoApply)
}

func TestAnalyzeEmptyMessagesSkipsAISource(t *testing.T) {
	suggester := &fakeSuggestionSource{suggestions: suggestionsWithConfidence(0.9)}
	svc, _ := newTestService(t, nil, suggester)

	result := svc.AnalyzeConversation(context.Background(), "conv-1", "user-1", nil)
	assert.Empty(t, result.Suggestions)
	assert.Zero(t, atomic.LoadInt32(&suggester.calls))
}

func TestHistoryTail(t *testing.T) {
	assert.Nil(t, historyTail(msgs("only one")))

	many := msgs("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "latest")
	tail := historyTail(many)
	require.Len(t, tail, historyWindow)
	assert.Equal(t, "c", tail[0].Content)
	assert.Equal(t, "l", tail[len(tail)-1].Content)
}
