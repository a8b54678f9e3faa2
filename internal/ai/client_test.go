package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-automation/internal/automation"
	"chat-automation/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		AIEnabled:  true,
		AIEndpoint: endpoint,
		AIAPIKey:   "test-key",
		AIModel:    "test-model",
	}
}

func completionResponse(content string) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(raw)
}

func TestGenerateSuggestionsDisabled(t *testing.T) {
	client := NewClient(&config.Config{AIEnabled: false})
	_, err := client.GenerateSuggestions(context.Background(), automation.SuggestionRequest{MessageContent: "hi"})
	assert.Error(t, err)

	client = NewClient(&config.Config{AIEnabled: true, AIAPIKey: ""})
	_, err = client.GenerateSuggestions(context.Background(), automation.SuggestionRequest{MessageContent: "hi"})
	assert.Error(t, err)
}

func TestGenerateSuggestionsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "where is my order")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse(`[{"type":"suggest_response","confidence":0.8,"action":{"type":"suggest_response","data":{"prompt":"Check order status"}}}]`)))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	suggestions, err := client.GenerateSuggestions(context.Background(), automation.SuggestionRequest{
		ConversationID: "conv-1",
		MessageContent: "where is my order",
		ConversationHistory: []automation.ConversationMessage{
			{Role: "user", Content: "I placed an order yesterday"},
		},
	})

	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.NotEmpty(t, suggestions[0].ID)
	assert.Equal(t, "suggest_response", suggestions[0].Type)
	assert.Equal(t, 0.8, suggestions[0].Confidence)
	assert.Equal(t, "Check order status", suggestions[0].Action.Data["prompt"])
}

func TestGenerateSuggestionsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.GenerateSuggestions(context.Background(), automation.SuggestionRequest{MessageContent: "hi"})
	assert.Error(t, err)
}

func TestParseSuggestionsMarkdownFences(t *testing.T) {
	content := "```json\n[{\"type\":\"insert_text\",\"confidence\":1.4,\"action\":{\"type\":\"insert_text\",\"data\":{\"text\":\"hi\"}}}]\n```"
	suggestions, err := parseSuggestions(content)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	// Confidence clamped into [0,1].
	assert.Equal(t, 1.0, suggestions[0].Confidence)
}

func TestParseSuggestionsGarbage(t *testing.T) {
	_, err := parseSuggestions("sorry, I cannot help with that")
	assert.Error(t, err)
}
