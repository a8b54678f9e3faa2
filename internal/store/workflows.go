package store

import (
	"errors"
	"time"

	"chat-automation/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned by ownership-scoped reads and updates when no row
// matches the (id, user_id) pair.
var ErrNotFound = errors.New("record not found")

// WorkflowStore provides CRUD over user-owned automation workflows. Workflows
// are never hard-deleted here; Deactivate flips is_active instead.
type WorkflowStore struct {
	db *gorm.DB
}

func NewWorkflowStore(db *gorm.DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

// Create inserts a new workflow owned by userID. A missing ID is generated.
func (s *WorkflowStore) Create(userID string, workflow *models.AutomationWorkflow) (*models.AutomationWorkflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}
	workflow.UserID = userID

	if err := s.db.Create(workflow).Error; err != nil {
		return nil, err
	}
	return workflow, nil
}

// List returns every workflow owned by userID, active or not.
func (s *WorkflowStore) List(userID string) ([]models.AutomationWorkflow, error) {
	var workflows []models.AutomationWorkflow
	err := s.db.
		Where("user_id = ?", userID).
		Order("priority DESC, created_at DESC").
		Find(&workflows).Error
	if err != nil {
		return nil, err
	}
	return workflows, nil
}

// ListActive returns the active workflows for userID ordered by priority
// descending, newest first on ties.
func (s *WorkflowStore) ListActive(userID string) ([]models.AutomationWorkflow, error) {
	var workflows []models.AutomationWorkflow
	err := s.db.
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("priority DESC, created_at DESC").
		Find(&workflows).Error
	if err != nil {
		return nil, err
	}
	return workflows, nil
}

// GetByID is an ownership-scoped read: a workflow belonging to another user
// is indistinguishable from a missing one.
func (s *WorkflowStore) GetByID(id, userID string) (*models.AutomationWorkflow, error) {
	var workflow models.AutomationWorkflow
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &workflow, nil
}

// Update applies a column patch to the workflow identified by (id, userID).
func (s *WorkflowStore) Update(id, userID string, patch map[string]interface{}) error {
	result := s.db.Model(&models.AutomationWorkflow{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(patch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUsage bumps usage_count atomically in SQL so concurrent executions
// of the same workflow cannot lose updates.
func (s *WorkflowStore) IncrementUsage(id string) error {
	return s.db.Model(&models.AutomationWorkflow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + ?", 1),
			"last_used_at": time.Now(),
		}).Error
}

// Deactivate soft-deletes a workflow by clearing is_active.
func (s *WorkflowStore) Deactivate(id, userID string) error {
	return s.Update(id, userID, map[string]interface{}{"is_active": false})
}

// SetActive toggles a workflow on or off.
func (s *WorkflowStore) SetActive(id, userID string, active bool) error {
	return s.Update(id, userID, map[string]interface{}{"is_active": active})
}
