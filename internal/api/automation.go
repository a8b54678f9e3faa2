package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"chat-automation/internal/automation"
	"chat-automation/internal/models"
	"chat-automation/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type AutomationHandler struct {
	service *automation.Service
}

func NewAutomationHandler(service *automation.Service) *AutomationHandler {
	return &AutomationHandler{service: service}
}

// userID resolves the acting user from the X-User-ID header. Authentication
// itself lives outside this service.
func userID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return "", false
	}
	return id, true
}

// AnalyzeConversation returns patterns, ranked suggestions and active
// workflows for the latest message.
func (h *AutomationHandler) AnalyzeConversation(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req struct {
		ConversationID string                           `json:"conversation_id" binding:"required"`
		Messages       []automation.ConversationMessage `json:"messages" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.service.AnalyzeConversation(c.Request.Context(), req.ConversationID, uid, req.Messages)
	c.JSON(http.StatusOK, result)
}

// ProcessMessage runs the automatic trigger path for one inbound message and
// returns the executions it produced.
func (h *AutomationHandler) ProcessMessage(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req struct {
		ConversationID string `json:"conversation_id" binding:"required"`
		Content        string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := h.service.ProcessIncomingMessage(c.Request.Context(), uid, req.ConversationID, req.Content)
	if results == nil {
		results = []*automation.ExecutionResult{}
	}
	c.JSON(http.StatusOK, gin.H{"executions": results})
}

// GetWorkflows returns all workflows owned by the user, active or not.
func (h *AutomationHandler) GetWorkflows(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.ListWorkflows(uid))
}

// CreateWorkflow creates a new automation workflow.
func (h *AutomationHandler) CreateWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req struct {
		Title             string          `json:"title" binding:"required"`
		Description       string          `json:"description"`
		TriggerType       string          `json:"trigger_type" binding:"required"`
		TriggerConditions json.RawMessage `json:"trigger_conditions" binding:"required"`
		Actions           json.RawMessage `json:"actions" binding:"required"`
		Priority          int             `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := automation.ParseConditions(req.TriggerConditions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger_conditions: " + err.Error()})
		return
	}
	if _, err := automation.ParseActions(req.Actions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid actions: " + err.Error()})
		return
	}

	workflow := &models.AutomationWorkflow{
		Title:             req.Title,
		Description:       req.Description,
		TriggerType:       req.TriggerType,
		TriggerConditions: datatypes.JSON(req.TriggerConditions),
		Actions:           datatypes.JSON(req.Actions),
		IsActive:          true,
		Priority:          req.Priority,
	}

	created := h.service.CreateWorkflow(uid, workflow)
	if created == nil {
		// Storage being unavailable is recoverable; the UI stays functional.
		c.JSON(http.StatusOK, gin.H{"workflow": nil, "message": "automation storage unavailable"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateWorkflow applies a partial update to an owned workflow.
func (h *AutomationHandler) UpdateWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req struct {
		Title             string          `json:"title"`
		Description       *string         `json:"description"`
		TriggerType       string          `json:"trigger_type"`
		TriggerConditions json.RawMessage `json:"trigger_conditions"`
		Actions           json.RawMessage `json:"actions"`
		Priority          *int            `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := map[string]interface{}{}
	if req.Title != "" {
		patch["title"] = req.Title
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.TriggerType != "" {
		patch["trigger_type"] = req.TriggerType
	}
	if len(req.TriggerConditions) > 0 {
		if _, err := automation.ParseConditions(req.TriggerConditions); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger_conditions: " + err.Error()})
			return
		}
		patch["trigger_conditions"] = string(req.TriggerConditions)
	}
	if len(req.Actions) > 0 {
		if _, err := automation.ParseActions(req.Actions); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid actions: " + err.Error()})
			return
		}
		patch["actions"] = string(req.Actions)
	}
	if req.Priority != nil {
		patch["priority"] = *req.Priority
	}

	if err := h.service.UpdateWorkflow(id, uid, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workflow updated successfully"})
}

// ToggleWorkflow activates or deactivates a workflow.
func (h *AutomationHandler) ToggleWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetWorkflowActive(id, uid, req.IsActive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workflow toggled successfully"})
}

// DeleteWorkflow soft-deletes a workflow by deactivating it.
func (h *AutomationHandler) DeleteWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	if err := h.service.SetWorkflowActive(id, uid, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workflow deactivated successfully"})
}

// ExecuteWorkflow runs one workflow on demand. The response is always the
// execution result; a missing workflow surfaces as success=false, not as an
// HTTP error.
func (h *AutomationHandler) ExecuteWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	var req struct {
		ConversationID string                 `json:"conversation_id" binding:"required"`
		TriggerData    map[string]interface{} `json:"trigger_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.service.ExecuteWorkflow(c.Request.Context(), id, uid, req.ConversationID, req.TriggerData)
	c.JSON(http.StatusOK, result)
}

// GetExecutions returns recent audit records.
func (h *AutomationHandler) GetExecutions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, h.service.RecentExecutions(uid, limit))
}

// GetAnalytics returns workflow/execution counters.
func (h *AutomationHandler) GetAnalytics(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.Stats(uid))
}

// GetSettings returns the user's effective automation settings.
func (h *AutomationHandler) GetSettings(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.GetSettings(uid))
}

// UpdateSettings merges a JSON patch into the user's settings.
func (h *AutomationHandler) UpdateSettings(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	patch, err := io.ReadAll(c.Request.Body)
	if err != nil || len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing settings patch"})
		return
	}
	if !json.Valid(patch) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "settings patch is not valid JSON"})
		return
	}

	c.JSON(http.StatusOK, h.service.UpdateSettings(uid, patch))
}
