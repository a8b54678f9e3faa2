package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"chat-automation/internal/models"
	"chat-automation/internal/store"
)

// ExecuteWorkflow runs one workflow against a trigger context. Actions run
// strictly in array order and each failure is recorded without stopping the
// run. Exactly one audit record is written per call, on the happy path and
// the unhappy path alike. No retries happen here; re-invoking is a caller
// concern.
func (s *Service) ExecuteWorkflow(ctx context.Context, workflowID, userID, conversationID string, triggerData map[string]interface{}) *ExecutionResult {
	start := time.Now()
	result := &ExecutionResult{ActionsExecuted: []ActionResult{}}

	workflow, err := s.workflows.GetByID(workflowID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			result.Error = fmt.Sprintf("workflow %s not found", workflowID)
		} else {
			result.Error = fmt.Sprintf("failed to fetch workflow %s: %v", workflowID, err)
		}
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		s.recordExecution(userID, nil, conversationID, "manual", triggerData, result)
		return result
	}

	actions, err := ParseActions(workflow.Actions)
	if err != nil {
		result.Error = fmt.Sprintf("invalid actions on workflow %s: %v", workflowID, err)
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		s.recordExecution(userID, &workflow.ID, conversationID, workflow.TriggerType, triggerData, result)
		return result
	}

	execCtx := ExecutionContext{
		WorkflowID:     workflow.ID,
		UserID:         userID,
		ConversationID: conversationID,
		TriggerData:    triggerData,
	}

	for _, action := range actions {
		entry := ActionResult{
			Action:     action,
			ExecutedAt: time.Now(),
			Success:    true,
		}
		if err := s.executeAction(ctx, action, execCtx); err != nil {
			log.Printf("Action %s failed in workflow %s: %v", action.Type, workflow.ID, err)
			entry.Success = false
			entry.Error = err.Error()
		}
		// Partial failure is expected; continue with the next action.
		result.ActionsExecuted = append(result.ActionsExecuted, entry)
	}

	// Usage statistics update regardless of per-action outcomes.
	if err := s.workflows.IncrementUsage(workflow.ID); err != nil {
		log.Printf("Error updating usage for workflow %s: %v", workflow.ID, err)
	}

	result.Success = true
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	s.recordExecution(userID, &workflow.ID, conversationID, workflow.TriggerType, triggerData, result)
	s.publish("automation.execution", result)
	return result
}

// executeAction dispatches one action through the registry, converting panics
// into per-action failures so a misbehaving handler cannot abort the run.
func (s *Service) executeAction(ctx context.Context, action Action, execCtx ExecutionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", action.Type, r)
		}
	}()

	payload, err := s.actions.Execute(ctx, action, execCtx)
	if err != nil {
		return err
	}
	if payload != nil {
		s.publish("automation.action", map[string]interface{}{
			"workflow_id": execCtx.WorkflowID,
			"type":        action.Type,
			"payload":     payload,
		})
	}
	return nil
}

// recordExecution writes the audit record for one execution attempt. Audit
// failures are swallowed; they never mask the primary result.
func (s *Service) recordExecution(userID string, workflowID *string, conversationID, triggerType string, triggerData map[string]interface{}, result *ExecutionResult) {
	actionsJSON, err := json.Marshal(result.ActionsExecuted)
	if err != nil {
		actionsJSON = []byte("[]")
	}
	triggerJSON, err := json.Marshal(triggerData)
	if err != nil {
		triggerJSON = []byte("{}")
	}

	execution := &models.WorkflowExecution{
		UserID:          userID,
		WorkflowID:      workflowID,
		ConversationID:  conversationID,
		TriggerType:     triggerType,
		TriggerData:     triggerJSON,
		ActionsExecuted: actionsJSON,
		Success:         result.Success,
		ErrorMessage:    result.Error,
		ExecutionTimeMs: result.ExecutionTimeMs,
	}

	if err := s.executions.Insert(execution); err != nil {
		log.Printf("Error writing execution audit record: %v", err)
		return
	}
	result.ExecutionID = execution.ID
}

// ParseActions decodes the JSON action list stored on a workflow.
func ParseActions(raw []byte) ([]Action, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}
