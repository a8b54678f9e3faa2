package automation

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"chat-automation/internal/models"
	"chat-automation/internal/store"

	"gorm.io/gorm"
)

// Service is the automation facade: the single entry point the surrounding
// application calls for analysis, workflow CRUD, execution and settings.
// Collaborator failures degrade to empty results here; they never propagate
// to the caller as errors on the primary read path.
type Service struct {
	workflows  *store.WorkflowStore
	executions *store.ExecutionStore
	settings   *store.SettingsStore
	patterns   PatternSource
	suggester  SuggestionSource
	actions    *ActionRegistry
	events     EventSink

	mu           sync.RWMutex
	userSettings map[string]Settings
}

// NewService wires the engine. patterns, suggester and events may be nil;
// the corresponding stages are skipped.
func NewService(db *gorm.DB, patterns PatternSource, suggester SuggestionSource, events EventSink) *Service {
	s := &Service{
		workflows:    store.NewWorkflowStore(db),
		executions:   store.NewExecutionStore(db),
		settings:     store.NewSettingsStore(db),
		patterns:     patterns,
		suggester:    suggester,
		actions:      NewActionRegistry(),
		events:       events,
		userSettings: make(map[string]Settings),
	}
	s.registerBuiltinActions()
	return s
}

// Actions exposes the registry so callers can register custom handlers.
func (s *Service) Actions() *ActionRegistry {
	return s.actions
}

// Initialize loads the persisted settings patch for userID and merges it over
// defaults. A failed load falls back to defaults.
func (s *Service) Initialize(userID string) Settings {
	settings := DefaultSettings()

	patch, err := s.settings.Get(userID)
	if err != nil {
		log.Printf("Error loading settings for user %s: %v", userID, err)
	} else {
		settings = settings.Merge(patch)
	}

	s.mu.Lock()
	s.userSettings[userID] = settings
	s.mu.Unlock()

	return settings
}

// settingsFor returns the cached settings value for userID, initializing from
// the store on first use.
func (s *Service) settingsFor(userID string) Settings {
	s.mu.RLock()
	settings, ok := s.userSettings[userID]
	s.mu.RUnlock()
	if ok {
		return settings
	}
	return s.Initialize(userID)
}

// GetSettings returns the effective settings value for userID.
func (s *Service) GetSettings(userID string) Settings {
	return s.settingsFor(userID)
}

// UpdateSettings merges a JSON patch into the user's current settings and
// persists the result asynchronously. Persistence is best-effort: a failed
// write does not roll back the in-memory value.
func (s *Service) UpdateSettings(userID string, patch json.RawMessage) Settings {
	updated := s.settingsFor(userID).Merge(patch)

	s.mu.Lock()
	s.userSettings[userID] = updated
	s.mu.Unlock()

	go func() {
		raw, err := json.Marshal(updated)
		if err != nil {
			log.Printf("Error marshaling settings for user %s: %v", userID, err)
			return
		}
		if err := s.settings.Upsert(userID, raw); err != nil {
			log.Printf("Error persisting settings for user %s: %v", userID, err)
		}
	}()

	return updated
}

// CreateWorkflow stores a new user-owned workflow. Returns nil when the
// backing store is unavailable so the caller's UI stays functional.
func (s *Service) CreateWorkflow(userID string, workflow *models.AutomationWorkflow) *models.AutomationWorkflow {
	created, err := s.workflows.Create(userID, workflow)
	if err != nil {
		log.Printf("Error creating workflow for user %s: %v", userID, err)
		return nil
	}
	return created
}

// ListWorkflows returns all workflows owned by userID, active or not.
func (s *Service) ListWorkflows(userID string) []models.AutomationWorkflow {
	workflows, err := s.workflows.List(userID)
	if err != nil {
		log.Printf("Error listing workflows for user %s: %v", userID, err)
		return []models.AutomationWorkflow{}
	}
	return workflows
}

// UpdateWorkflow applies a column patch to an owned workflow.
func (s *Service) UpdateWorkflow(id, userID string, patch map[string]interface{}) error {
	return s.workflows.Update(id, userID, patch)
}

// SetWorkflowActive toggles a workflow; deactivation is the engine's soft
// delete, workflows are never hard-deleted here.
func (s *Service) SetWorkflowActive(id, userID string, active bool) error {
	return s.workflows.SetActive(id, userID, active)
}

// ShouldTriggerAutomation reports whether an active workflow's trigger
// conditions match the message. Inactive workflows never match.
func (s *Service) ShouldTriggerAutomation(message string, workflow *models.AutomationWorkflow) bool {
	if workflow == nil || !workflow.IsActive {
		return false
	}
	conditions, err := ParseConditions(workflow.TriggerConditions)
	if err != nil {
		log.Printf("Error parsing conditions for workflow %s: %v", workflow.ID, err)
		return false
	}
	return Matches(message, conditions)
}

// ProcessIncomingMessage runs the automatic trigger path for one inbound
// message: every active workflow whose conditions match is executed, in
// priority order. No two workflows are implicitly exclusive.
func (s *Service) ProcessIncomingMessage(ctx context.Context, userID, conversationID, message string) []*ExecutionResult {
	settings := s.settingsFor(userID)
	if !settings.Enabled {
		return nil
	}

	workflows, err := s.workflows.ListActive(userID)
	if err != nil {
		log.Printf("Error fetching workflows for user %s: %v", userID, err)
		return nil
	}

	var results []*ExecutionResult
	for i := range workflows {
		workflow := &workflows[i]
		if !s.ShouldTriggerAutomation(message, workflow) {
			continue
		}
		log.Printf("Workflow %q matched message in conversation %s", workflow.Title, conversationID)
		triggerData := map[string]interface{}{
			"message": message,
			"trigger": "automatic",
		}
		results = append(results, s.ExecuteWorkflow(ctx, workflow.ID, userID, conversationID, triggerData))
	}
	return results
}

// RecentExecutions returns the newest audit records for userID.
func (s *Service) RecentExecutions(userID string, limit int) []models.WorkflowExecution {
	executions, err := s.executions.ListRecent(userID, limit)
	if err != nil {
		log.Printf("Error listing executions for user %s: %v", userID, err)
		return []models.WorkflowExecution{}
	}
	return executions
}

// Stats aggregates workflow and execution counts for userID.
func (s *Service) Stats(userID string) *store.ExecutionStats {
	stats, err := s.executions.Stats(userID)
	if err != nil {
		log.Printf("Error computing stats for user %s: %v", userID, err)
		return &store.ExecutionStats{}
	}
	return stats
}

func (s *Service) publish(eventType string, data interface{}) {
	if s.events != nil {
		s.events.BroadcastEvent(eventType, data)
	}
}

// ParseConditions decodes the JSON condition list stored on a workflow.
func ParseConditions(raw []byte) ([]TriggerCondition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var conditions []TriggerCondition
	if err := json.Unmarshal(raw, &conditions); err != nil {
		return nil, err
	}
	return conditions, nil
}
