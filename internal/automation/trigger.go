package automation

import (
	"log"
	"regexp"
	"strings"
)

// ConditionType is the closed set of trigger condition kinds.
type ConditionType string

const (
	ConditionContains  ConditionType = "contains"
	ConditionMatches   ConditionType = "matches"
	ConditionSimilarTo ConditionType = "similar_to"
)

// DefaultSimilarityThreshold applies to similar_to conditions that do not set
// their own threshold.
const DefaultSimilarityThreshold = 0.7

// TriggerCondition is one atomic test against a message. Conditions are
// immutable once attached to a workflow.
type TriggerCondition struct {
	Type          ConditionType `json:"type"`
	Value         string        `json:"value"`
	CaseSensitive bool          `json:"case_sensitive,omitempty"`
	Threshold     float64       `json:"threshold,omitempty"` // similar_to only
}

// Matches reports whether message satisfies every condition (AND semantics).
// An empty condition list matches unconditionally. The evaluator never
// panics; a condition that cannot be evaluated counts as a non-match.
func Matches(message string, conditions []TriggerCondition) bool {
	for _, cond := range conditions {
		if !matchCondition(message, cond) {
			return false
		}
	}
	return true
}

func matchCondition(message string, cond TriggerCondition) bool {
	switch cond.Type {
	case ConditionContains:
		if cond.CaseSensitive {
			return strings.Contains(message, cond.Value)
		}
		return strings.Contains(strings.ToLower(message), strings.ToLower(cond.Value))

	case ConditionMatches:
		pattern := cond.Value
		if !cond.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			// Invalid patterns fail closed rather than erroring the workflow.
			log.Printf("Invalid trigger regex %q: %v", cond.Value, err)
			return false
		}
		return re.MatchString(message)

	case ConditionSimilarTo:
		threshold := cond.Threshold
		if threshold <= 0 {
			threshold = DefaultSimilarityThreshold
		}
		return Similarity(message, cond.Value, cond.CaseSensitive) >= threshold

	default:
		log.Printf("Unknown trigger condition type: %s", cond.Type)
		return false
	}
}

// Similarity computes fuzzy word-overlap similarity between two strings:
// |common tokens| / max(|tokens(a)|, |tokens(b)|), where commonality is a set
// membership test counted once per occurrence in the shorter token list.
// Identical strings score 1.0 by definition; if either side has no tokens the
// score is 0.
func Similarity(a, b string, caseSensitive bool) float64 {
	if !caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if a == b {
		return 1
	}

	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	shorter, longer := tokensA, tokensB
	if len(tokensB) < len(tokensA) {
		shorter, longer = tokensB, tokensA
	}

	seen := make(map[string]struct{}, len(longer))
	for _, token := range longer {
		seen[token] = struct{}{}
	}

	common := 0
	for _, token := range shorter {
		if _, ok := seen[token]; ok {
			common++
		}
	}

	return float64(common) / float64(len(longer))
}
