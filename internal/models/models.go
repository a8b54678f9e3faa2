package models

import (
	"time"

	"gorm.io/datatypes"
)

// AutomationWorkflow is a user-owned automation rule: trigger conditions plus
// an ordered list of actions, matched against conversation text.
type AutomationWorkflow struct {
	ID                string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            string         `gorm:"type:varchar(255);not null;index" json:"user_id"`
	Title             string         `gorm:"type:varchar(255);not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description,omitempty"`
	TriggerType       string         `gorm:"type:varchar(50);not null" json:"trigger_type"`
	TriggerConditions datatypes.JSON `json:"trigger_conditions"` // JSON array of trigger conditions
	Actions           datatypes.JSON `json:"actions"`            // JSON array of actions
	IsActive          bool           `gorm:"default:true;index" json:"is_active"`
	Priority          int            `gorm:"default:0" json:"priority"`
	UsageCount        int            `gorm:"default:0" json:"usage_count"`
	LastUsedAt        *time.Time     `json:"last_used_at,omitempty"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AutomationWorkflow) TableName() string {
	return "automation_workflows"
}

// WorkflowExecution is an append-only audit record, written exactly once per
// execution attempt whether it succeeded or not.
type WorkflowExecution struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string         `gorm:"type:varchar(255);not null;index" json:"user_id"`
	WorkflowID      *string        `gorm:"type:uuid;index" json:"workflow_id,omitempty"` // nil for ad-hoc manual triggers
	ConversationID  string         `gorm:"type:varchar(255);index" json:"conversation_id"`
	TriggerType     string         `gorm:"type:varchar(50)" json:"trigger_type"`
	TriggerData     datatypes.JSON `json:"trigger_data"`
	ActionsExecuted datatypes.JSON `json:"actions_executed"` // JSON array of per-action results
	Success         bool           `json:"success"`
	ErrorMessage    string         `gorm:"type:text" json:"error_message,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (WorkflowExecution) TableName() string {
	return "workflow_executions"
}

// UserSettings holds the persisted per-user automation settings patch. The
// stored JSON is merged over engine defaults on load, so missing keys keep
// their default values.
type UserSettings struct {
	UserID    string         `gorm:"type:varchar(255);primaryKey" json:"user_id"`
	Settings  datatypes.JSON `json:"settings"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}
