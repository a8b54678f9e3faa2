package automation

import (
	"context"
	"time"

	"chat-automation/internal/models"
)

// Action is an opaque, typed instruction attached to a workflow or a
// suggestion. The engine dispatches on Type and records execution attempts;
// interpreting Data belongs to the registered handler or the UI layer.
type Action struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// ConversationMessage is one message of the conversation under analysis.
type ConversationMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ConversationPattern is an opaque signal produced by the pattern source. The
// engine forwards it to callers without interpreting Metadata.
type ConversationPattern struct {
	Type       string                 `json:"type"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Suggestion is an ephemeral, confidence-scored automation candidate surfaced
// for a single message. Suggestions are never persisted.
type Suggestion struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Action     Action  `json:"action"`
	AutoApply  bool    `json:"auto_apply,omitempty"`
}

// PatternResult is the pattern source output for one analysis call.
type PatternResult struct {
	Patterns            []ConversationPattern `json:"patterns"`
	Suggestions         []Suggestion          `json:"suggestions"`
	ConfidenceThreshold float64               `json:"confidence_threshold"`
}

// PatternSource detects conversation patterns and derives pattern-based
// suggestions. Implemented outside the engine.
type PatternSource interface {
	DetectPatterns(ctx context.Context, conversationID, userID string, messages []ConversationMessage) (*PatternResult, error)
}

// SuggestionRequest carries the latest message plus a bounded history window
// to the AI suggestion source.
type SuggestionRequest struct {
	ConversationID      string                `json:"conversation_id"`
	MessageContent      string                `json:"message_content"`
	ConversationHistory []ConversationMessage `json:"conversation_history,omitempty"`
}

// SuggestionSource generates model-based suggestions. Implemented outside the
// engine; callers relying on bounded latency impose a timeout there.
type SuggestionSource interface {
	GenerateSuggestions(ctx context.Context, req SuggestionRequest) ([]Suggestion, error)
}

// AnalysisResult is what one analyzeConversation call returns to the UI.
type AnalysisResult struct {
	Patterns    []ConversationPattern       `json:"patterns"`
	Suggestions []Suggestion                `json:"suggestions"`
	Workflows   []models.AutomationWorkflow `json:"workflows"`
}

// ActionResult records one action execution attempt inside a workflow run.
type ActionResult struct {
	Action     Action    `json:"action"`
	ExecutedAt time.Time `json:"executed_at"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// ExecutionResult is the aggregate outcome of one workflow execution. Success
// reflects whether the workflow ran to completion, not whether every action
// succeeded; callers needing per-action status inspect ActionsExecuted.
type ExecutionResult struct {
	ExecutionID     string         `json:"execution_id"`
	Success         bool           `json:"success"`
	ActionsExecuted []ActionResult `json:"actions_executed"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
}

// EventSink receives engine events (suggestions, executions) for realtime
// fan-out. The websocket hub implements it.
type EventSink interface {
	BroadcastEvent(eventType string, data interface{})
}
