package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"chat-automation/internal/automation"
	"chat-automation/internal/config"

	"github.com/google/uuid"
)

// Client generates automation suggestions through an OpenAI-compatible chat
// completions endpoint. The aggregator treats any error here as an empty
// result, so the engine keeps working when the model is unreachable.
type Client struct {
	cfg  *config.Config
	http *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

const systemPrompt = `You suggest chat automations. Given the latest user message and recent history,
respond with ONLY a JSON array (no prose, no markdown) of at most 5 objects:
[{"type":"insert_text|suggest_response|apply_template","confidence":0.0-1.0,"action":{"type":"...","data":{...}}}]
Use "text" in data for insert_text, "prompt" for suggest_response, "template_id" for apply_template.`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type suggestionPayload struct {
	Type       string            `json:"type"`
	Confidence float64           `json:"confidence"`
	Action     automation.Action `json:"action"`
}

// GenerateSuggestions calls the model with the latest message and a bounded
// history window and parses the strict-JSON suggestion array it returns.
func (c *Client) GenerateSuggestions(ctx context.Context, req automation.SuggestionRequest) ([]automation.Suggestion, error) {
	if !c.cfg.AIEnabled || c.cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("ai suggestions disabled")
	}

	body := chatRequest{
		Model:       c.cfg.AIModel,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AIEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("AI endpoint returned status %d: %s", resp.StatusCode, string(raw))
		return nil, fmt.Errorf("ai endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("ai response contained no choices")
	}

	return parseSuggestions(parsed.Choices[0].Message.Content)
}

func buildPrompt(req automation.SuggestionRequest) string {
	var sb strings.Builder
	if len(req.ConversationHistory) > 0 {
		sb.WriteString("Recent history:\n")
		for _, msg := range req.ConversationHistory {
			role := msg.Role
			if role == "" {
				role = "user"
			}
			fmt.Fprintf(&sb, "%s: %s\n", role, msg.Content)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Latest message: %s", req.MessageContent)
	return sb.String()
}

// parseSuggestions tolerates models that wrap JSON in markdown fences.
func parseSuggestions(content string) ([]automation.Suggestion, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payloads []suggestionPayload
	if err := json.Unmarshal([]byte(content), &payloads); err != nil {
		return nil, fmt.Errorf("failed to parse ai suggestions: %w", err)
	}

	suggestions := make([]automation.Suggestion, 0, len(payloads))
	for _, p := range payloads {
		if p.Confidence < 0 {
			p.Confidence = 0
		}
		if p.Confidence > 1 {
			p.Confidence = 1
		}
		suggestions = append(suggestions, automation.Suggestion{
			ID:         uuid.NewString(),
			Type:       p.Type,
			Confidence: p.Confidence,
			Action:     p.Action,
		})
	}
	return suggestions, nil
}
