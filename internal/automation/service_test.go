package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"chat-automation/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:automation_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AutomationWorkflow{},
		&models.WorkflowExecution{},
		&models.UserSettings{},
	))
	return db
}

func newTestService(t *testing.T, patterns PatternSource, suggester SuggestionSource) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewService(db, patterns, suggester, nil), db
}

type fakePatternSource struct {
	result *PatternResult
	err    error
	calls  int32
}

func (f *fakePatternSource) DetectPatterns(context.Context, string, string, []ConversationMessage) (*PatternResult, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.result, f.err
}

type fakeSuggestionSource struct {
	suggestions []Suggestion
	err         error
	panics      bool
	calls       int32
}

func (f *fakeSuggestionSource) GenerateSuggestions(context.Context, SuggestionRequest) ([]Suggestion, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.panics {
		panic("suggestion source blew up")
	}
	return f.suggestions, f.err
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func seedWorkflow(t *testing.T, svc *Service, userID string, workflow *models.AutomationWorkflow) *models.AutomationWorkflow {
	t.Helper()
	created := svc.CreateWorkflow(userID, workflow)
	require.NotNil(t, created)
	return created
}

func TestShouldTriggerAutomation(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	conditions := mustJSON(t, []TriggerCondition{
		{Type: ConditionContains, Value: "refund"},
	})

	workflow := &models.AutomationWorkflow{
		Title:             "Refund helper",
		TriggerType:       "message",
		TriggerConditions: conditions,
		IsActive:          true,
	}

	require.True(t, svc.ShouldTriggerAutomation("I need a Refund please", workflow))
	require.False(t, svc.ShouldTriggerAutomation("just saying hi", workflow))

	workflow.IsActive = false
	require.False(t, svc.ShouldTriggerAutomation("I need a Refund please", workflow))
}

func TestShouldTriggerAutomationBadConditionsJSON(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	workflow := &models.AutomationWorkflow{
		Title:             "Broken",
		IsActive:          true,
		TriggerConditions: []byte(`{not valid`),
	}
	require.False(t, svc.ShouldTriggerAutomation("anything", workflow))
}

func TestProcessIncomingMessageExecutesMatches(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	userID := "user-1"

	seedWorkflow(t, svc, userID, &models.AutomationWorkflow{
		Title:       "Greeter",
		TriggerType: "message",
		TriggerConditions: mustJSON(t, []TriggerCondition{
			{Type: ConditionContains, Value: "hello"},
		}),
		Actions: mustJSON(t, []Action{
			{Type: "insert_text", Data: map[string]interface{}{"text": "Hi there!"}},
		}),
		IsActive: true,
	})
	seedWorkflow(t, svc, userID, &models.AutomationWorkflow{
		Title:       "Refunds",
		TriggerType: "message",
		TriggerConditions: mustJSON(t, []TriggerCondition{
			{Type: ConditionContains, Value: "refund"},
		}),
		Actions:  mustJSON(t, []Action{{Type: "apply_template", Data: map[string]interface{}{"template_id": "refund"}}}),
		IsActive: true,
	})

	results := svc.ProcessIncomingMessage(context.Background(), userID, "conv-1", "hello out there")
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	require.Len(t, results[0].ActionsExecuted, 1)
}

func TestProcessIncomingMessageDisabledEngine(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	userID := "user-1"
	svc.UpdateSettings(userID, json.RawMessage(`{"enabled": false}`))

	seedWorkflow(t, svc, userID, &models.AutomationWorkflow{
		Title:             "Greeter",
		TriggerType:       "message",
		TriggerConditions: mustJSON(t, []TriggerCondition{{Type: ConditionContains, Value: "hello"}}),
		IsActive:          true,
	})

	results := svc.ProcessIncomingMessage(context.Background(), userID, "conv-1", "hello")
	require.Empty(t, results)
}

func TestInitializeMergesPersistedSettings(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UserSettings{
		UserID:   "user-1",
		Settings: []byte(`{"max_suggestions_per_message": 7}`),
	}).Error)

	svc := NewService(db, nil, nil, nil)
	settings := svc.Initialize("user-1")

	require.Equal(t, 7, settings.MaxSuggestionsPerMessage)
	// Keys outside the patch keep their defaults.
	require.Equal(t, DefaultSettings().ConfidenceThreshold, settings.ConfidenceThreshold)
}

func TestUpdateSettingsTakesEffectImmediately(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	updated := svc.UpdateSettings("user-1", json.RawMessage(`{"confidence_threshold": 0.9}`))
	require.Equal(t, 0.9, updated.ConfidenceThreshold)
	require.Equal(t, 0.9, svc.GetSettings("user-1").ConfidenceThreshold)
}
