package patterns

import (
	"context"
	"strings"

	"chat-automation/internal/automation"

	"github.com/google/uuid"
)

// Detector is the built-in pattern source: cheap keyword and structure
// heuristics over the latest message and recent history. It runs with no
// external dependencies so pattern-based suggestions work offline.
type Detector struct {
	threshold float64
}

func NewDetector() *Detector {
	return &Detector{threshold: 0.5}
}

var greetingWords = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}

var supportWords = []string{"refund", "cancel", "complaint", "broken", "not working", "issue", "problem", "help me"}

// DetectPatterns inspects the conversation and derives pattern-based
// suggestions with heuristic confidences.
func (d *Detector) DetectPatterns(_ context.Context, conversationID, _ string, messages []automation.ConversationMessage) (*automation.PatternResult, error) {
	result := &automation.PatternResult{
		Patterns:            []automation.ConversationPattern{},
		Suggestions:         []automation.Suggestion{},
		ConfidenceThreshold: d.threshold,
	}

	if len(messages) == 0 {
		return result, nil
	}

	latest := messages[len(messages)-1].Content
	lowered := strings.ToLower(strings.TrimSpace(latest))
	if lowered == "" {
		return result, nil
	}

	if isQuestion(lowered) {
		result.Patterns = append(result.Patterns, automation.ConversationPattern{
			Type:       "question",
			Confidence: 0.9,
		})
		result.Suggestions = append(result.Suggestions, automation.Suggestion{
			ID:         uuid.NewString(),
			Type:       "suggest_response",
			Confidence: 0.7,
			Action: automation.Action{
				Type: "suggest_response",
				Data: map[string]interface{}{"prompt": "Answer the question: {{message}}"},
			},
		})
	}

	if hasGreeting(lowered) {
		result.Patterns = append(result.Patterns, automation.ConversationPattern{
			Type:       "greeting",
			Confidence: 0.8,
		})
		result.Suggestions = append(result.Suggestions, automation.Suggestion{
			ID:         uuid.NewString(),
			Type:       "insert_text",
			Confidence: 0.65,
			Action: automation.Action{
				Type: "insert_text",
				Data: map[string]interface{}{"text": "Hello! How can I help you today?"},
			},
		})
	}

	if containsAny(lowered, supportWords) {
		result.Patterns = append(result.Patterns, automation.ConversationPattern{
			Type:       "support_request",
			Confidence: 0.85,
		})
		result.Suggestions = append(result.Suggestions, automation.Suggestion{
			ID:         uuid.NewString(),
			Type:       "apply_template",
			Confidence: 0.8,
			Action: automation.Action{
				Type: "apply_template",
				Data: map[string]interface{}{"template_id": "support_intake"},
			},
		})
	}

	if repeats := countRepeats(lowered, messages); repeats >= 2 {
		result.Patterns = append(result.Patterns, automation.ConversationPattern{
			Type:       "repeated_message",
			Confidence: 0.75,
			Metadata:   map[string]interface{}{"occurrences": repeats + 1},
		})
		result.Suggestions = append(result.Suggestions, automation.Suggestion{
			ID:         uuid.NewString(),
			Type:       "suggest_response",
			Confidence: 0.7,
			Action: automation.Action{
				Type: "suggest_response",
				Data: map[string]interface{}{"prompt": "The user repeated themselves; acknowledge and escalate."},
			},
		})
	}

	return result, nil
}

func isQuestion(message string) bool {
	if strings.HasSuffix(message, "?") {
		return true
	}
	for _, prefix := range []string{"how ", "what ", "why ", "when ", "where ", "who ", "can ", "could ", "would ", "is ", "are ", "do ", "does "} {
		if strings.HasPrefix(message, prefix) {
			return true
		}
	}
	return false
}

func containsAny(message string, words []string) bool {
	for _, word := range words {
		if strings.Contains(message, word) {
			return true
		}
	}
	return false
}

// hasGreeting matches greeting words on token boundaries so substrings like
// the "hi" in "this" do not trigger it.
func hasGreeting(message string) bool {
	tokens := strings.FieldsFunc(message, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	})
	for _, token := range tokens {
		for _, word := range greetingWords {
			if token == word {
				return true
			}
		}
	}
	return strings.HasPrefix(message, "good morning") ||
		strings.HasPrefix(message, "good afternoon") ||
		strings.HasPrefix(message, "good evening")
}

// countRepeats counts how many prior messages match the latest one after
// normalization.
func countRepeats(latest string, messages []automation.ConversationMessage) int {
	count := 0
	for _, msg := range messages[:len(messages)-1] {
		if strings.ToLower(strings.TrimSpace(msg.Content)) == latest {
			count++
		}
	}
	return count
}
