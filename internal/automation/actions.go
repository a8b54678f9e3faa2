package automation

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ExecutionContext carries the trigger context into action handlers.
type ExecutionContext struct {
	WorkflowID     string
	UserID         string
	ConversationID string
	TriggerData    map[string]interface{}
}

// ActionHandler interprets one action type. The returned payload is pushed to
// the event sink for the UI to apply; the engine itself only records the
// attempt.
type ActionHandler func(ctx context.Context, action Action, execCtx ExecutionContext) (map[string]interface{}, error)

// ActionRegistry maps action types to handlers. Callers may register their
// own handlers next to the built-in ones.
type ActionRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ActionHandler
}

func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{handlers: make(map[string]ActionHandler)}
}

func (r *ActionRegistry) Register(actionType string, handler ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[actionType] = handler
}

// Execute dispatches the action to its handler. An unregistered type is an
// execution error for that action, not for the workflow as a whole.
func (r *ActionRegistry) Execute(ctx context.Context, action Action, execCtx ExecutionContext) (map[string]interface{}, error) {
	r.mu.RLock()
	handler, ok := r.handlers[action.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no handler registered for action type %q", action.Type)
	}
	return handler(ctx, action, execCtx)
}

// registerBuiltinActions installs handlers for the action types the chat UI
// understands. Each produces a payload broadcast over the event sink.
func (s *Service) registerBuiltinActions() {
	s.actions.Register("insert_text", func(_ context.Context, action Action, execCtx ExecutionContext) (map[string]interface{}, error) {
		text, ok := action.Data["text"].(string)
		if !ok || text == "" {
			return nil, fmt.Errorf("insert_text action requires a text field")
		}
		return map[string]interface{}{
			"conversation_id": execCtx.ConversationID,
			"text":            renderTemplate(text, execCtx),
		}, nil
	})

	s.actions.Register("suggest_response", func(_ context.Context, action Action, execCtx ExecutionContext) (map[string]interface{}, error) {
		prompt, ok := action.Data["prompt"].(string)
		if !ok || prompt == "" {
			return nil, fmt.Errorf("suggest_response action requires a prompt field")
		}
		return map[string]interface{}{
			"conversation_id": execCtx.ConversationID,
			"prompt":          renderTemplate(prompt, execCtx),
		}, nil
	})

	s.actions.Register("apply_template", func(_ context.Context, action Action, execCtx ExecutionContext) (map[string]interface{}, error) {
		templateID, ok := action.Data["template_id"].(string)
		if !ok || templateID == "" {
			return nil, fmt.Errorf("apply_template action requires a template_id field")
		}
		payload := map[string]interface{}{
			"conversation_id": execCtx.ConversationID,
			"template_id":     templateID,
		}
		if content, ok := action.Data["content"].(string); ok {
			payload["content"] = renderTemplate(content, execCtx)
		}
		return payload, nil
	})
}

// renderTemplate substitutes trigger context variables into action text.
func renderTemplate(text string, execCtx ExecutionContext) string {
	if message, ok := execCtx.TriggerData["message"].(string); ok {
		text = strings.ReplaceAll(text, "{{message}}", message)
	}
	text = strings.ReplaceAll(text, "{{conversation_id}}", execCtx.ConversationID)
	return text
}
