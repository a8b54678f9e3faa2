package automation

import (
	"encoding/json"
	"log"
)

// Settings controls every stage of the engine. It is a value type: loads and
// updates build a new value from defaults plus the persisted patch instead of
// mutating shared state.
type Settings struct {
	Enabled                        bool    `json:"enabled"`
	PatternDetectionEnabled        bool    `json:"pattern_detection_enabled"`
	WorkflowSuggestionsEnabled     bool    `json:"workflow_suggestions_enabled"`
	ContextAwareSuggestionsEnabled bool    `json:"context_aware_suggestions_enabled"`
	ConfirmationRequired           bool    `json:"confirmation_required"`
	MaxSuggestionsPerMessage       int     `json:"max_suggestions_per_message"`
	ConfidenceThreshold            float64 `json:"confidence_threshold"`
	AutoApplyHighConfidence        bool    `json:"auto_apply_high_confidence"`
	HighConfidenceThreshold        float64 `json:"high_confidence_threshold"`
}

// DefaultSettings are in effect until a user patch is loaded.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                        true,
		PatternDetectionEnabled:        true,
		WorkflowSuggestionsEnabled:     true,
		ContextAwareSuggestionsEnabled: true,
		ConfirmationRequired:           true,
		MaxSuggestionsPerMessage:       3,
		ConfidenceThreshold:            0.6,
		AutoApplyHighConfidence:        false,
		HighConfidenceThreshold:        0.85,
	}
}

// Merge applies a JSON patch over the receiver and returns the normalized
// result. Keys absent from the patch keep their current values; a malformed
// patch leaves the settings unchanged.
func (s Settings) Merge(patch json.RawMessage) Settings {
	merged := s
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &merged); err != nil {
			log.Printf("Error parsing settings patch: %v", err)
			return s.normalize()
		}
	}
	return merged.normalize()
}

// normalize clamps thresholds into [0,1] and enforces the invariant that the
// high-confidence threshold never sits below the base confidence threshold.
func (s Settings) normalize() Settings {
	s.ConfidenceThreshold = clamp01(s.ConfidenceThreshold)
	s.HighConfidenceThreshold = clamp01(s.HighConfidenceThreshold)
	if s.HighConfidenceThreshold < s.ConfidenceThreshold {
		s.HighConfidenceThreshold = s.ConfidenceThreshold
	}
	if s.MaxSuggestionsPerMessage < 0 {
		s.MaxSuggestionsPerMessage = 0
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
