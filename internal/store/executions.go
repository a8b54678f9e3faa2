package store

import (
	"chat-automation/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExecutionStore is the append-only audit log of workflow executions.
type ExecutionStore struct {
	db *gorm.DB
}

func NewExecutionStore(db *gorm.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// Insert appends one execution record. Records are never updated or deleted.
func (s *ExecutionStore) Insert(execution *models.WorkflowExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}
	return s.db.Create(execution).Error
}

// ListRecent returns the newest execution records for userID.
func (s *ExecutionStore) ListRecent(userID string, limit int) ([]models.WorkflowExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	var executions []models.WorkflowExecution
	err := s.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&executions).Error
	if err != nil {
		return nil, err
	}
	return executions, nil
}

// ExecutionStats aggregates audit counts for the analytics endpoint.
type ExecutionStats struct {
	TotalWorkflows  int64 `json:"total_workflows"`
	ActiveWorkflows int64 `json:"active_workflows"`
	TotalExecutions int64 `json:"total_executions"`
	SuccessfulExecs int64 `json:"successful_executions"`
	FailedExecs     int64 `json:"failed_executions"`
}

// Stats counts workflows and executions for userID.
func (s *ExecutionStore) Stats(userID string) (*ExecutionStats, error) {
	var stats ExecutionStats

	if err := s.db.Model(&models.AutomationWorkflow{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalWorkflows).Error; err != nil {
		return nil, err
	}
	s.db.Model(&models.AutomationWorkflow{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&stats.ActiveWorkflows)
	s.db.Model(&models.WorkflowExecution{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalExecutions)
	s.db.Model(&models.WorkflowExecution{}).
		Where("user_id = ? AND success = ?", userID, true).
		Count(&stats.SuccessfulExecs)
	s.db.Model(&models.WorkflowExecution{}).
		Where("user_id = ? AND success = ?", userID, false).
		Count(&stats.FailedExecs)

	return &stats, nil
}
