package automation

import (
	"context"
	"log"
	"sync"

	"chat-automation/internal/models"
)

// historyWindow bounds how many prior messages travel to the AI suggestion
// source with each analysis call.
const historyWindow = 10

// AnalyzeConversation merges pattern-based and AI-based suggestions for the
// latest message, filters them by the confidence threshold, caps the list and
// returns it alongside the caller's active workflows. The call is best-effort
// end to end: a failing source degrades to fewer suggestions, never to an
// error.
func (s *Service) AnalyzeConversation(ctx context.Context, conversationID, userID string, messages []ConversationMessage) *AnalysisResult {
	settings := s.settingsFor(userID)

	result := &AnalysisResult{
		Patterns:    []ConversationPattern{},
		Suggestions: []Suggestion{},
		Workflows:   []models.AutomationWorkflow{},
	}

	// Workflows are listed even when the engine is switched off, so the UI
	// can still render what the user has configured.
	workflows, err := s.workflows.ListActive(userID)
	if err != nil {
		log.Printf("Error listing workflows for user %s: %v", userID, err)
	} else if workflows != nil {
		result.Workflows = workflows
	}

	// Kill switch: neither source is called.
	if !settings.Enabled {
		return result
	}

	var latest string
	if len(messages) > 0 {
		latest = messages[len(messages)-1].Content
	}

	// The two sources have no data dependency; issue both concurrently and
	// join before concatenating so output ordering stays deterministic.
	var (
		wg                 sync.WaitGroup
		patternSuggestions []Suggestion
		aiSuggestions      []Suggestion
	)

	if settings.PatternDetectionEnabled && s.patterns != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverStage("pattern detection")
			detected, err := s.patterns.DetectPatterns(ctx, conversationID, userID, messages)
			if err != nil {
				log.Printf("Pattern detection failed for conversation %s: %v", conversationID, err)
				return
			}
			if detected != nil {
				result.Patterns = detected.Patterns
				patternSuggestions = detected.Suggestions
			}
		}()
	}

	if settings.WorkflowSuggestionsEnabled && s.suggester != nil && latest != "" {
		req := SuggestionRequest{
			ConversationID: conversationID,
			MessageContent: latest,
		}
		if settings.ContextAwareSuggestionsEnabled {
			req.ConversationHistory = historyTail(messages)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverStage("ai suggestions")
			suggestions, err := s.suggester.GenerateSuggestions(ctx, req)
			if err != nil {
				log.Printf("AI suggestion source failed for conversation %s: %v", conversationID, err)
				return
			}
			aiSuggestions = suggestions
		}()
	}

	wg.Wait()

	// Pattern-based suggestions come first; the concatenation order is the
	// tie-break for stable output, not a scoring factor. No re-sort happens
	// after filtering.
	combined := make([]Suggestion, 0, len(patternSuggestions)+len(aiSuggestions))
	combined = append(combined, patternSuggestions...)
	combined = append(combined, aiSuggestions...)

	for _, suggestion := range combined {
		if len(result.Suggestions) >= settings.MaxSuggestionsPerMessage {
			break
		}
		if suggestion.Confidence < settings.ConfidenceThreshold {
			continue
		}
		if settings.AutoApplyHighConfidence && suggestion.Confidence >= settings.HighConfidenceThreshold {
			suggestion.AutoApply = true
		}
		result.Suggestions = append(result.Suggestions, suggestion)
	}

	if len(result.Suggestions) > 0 || len(result.Patterns) > 0 {
		s.publish("automation.suggestions", map[string]interface{}{
			"conversation_id": conversationID,
			"patterns":        result.Patterns,
			"suggestions":     result.Suggestions,
		})
	}

	return result
}

// historyTail returns the last historyWindow messages preceding the latest.
func historyTail(messages []ConversationMessage) []ConversationMessage {
	if len(messages) <= 1 {
		return nil
	}
	history := messages[:len(messages)-1]
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	return history
}

func recoverStage(stage string) {
	if r := recover(); r != nil {
		log.Printf("Recovered panic in %s: %v", stage, r)
	}
}
