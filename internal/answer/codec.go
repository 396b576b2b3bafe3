// Package answer maps between a question's option-key space and the display
// text the quiz API expects on the wire.
package answer

import (
	"strings"

	"quizdeck/internal/domain"
)

// KeySet is the ordered alphabet of option keys. Options beyond its length
// are dropped when indexing.
type KeySet []string

// DefaultKeys matches the four-slot authoring form.
func DefaultKeys() KeySet {
	return KeySet{"A", "B", "C", "D"}
}

// IndexOptions assigns keys to non-empty, trimmed option texts in input
// order. Fewer than two usable options is a validation error.
func (k KeySet) IndexOptions(texts []string) (map[string]string, error) {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) < 2 {
		return nil, domain.Validationf("at least two options required, got %d", len(kept))
	}

	options := make(map[string]string, len(kept))
	for i, text := range kept {
		if i >= len(k) {
			break
		}
		options[k[i]] = text
	}
	return options, nil
}

// BuildSubmissionPayload resolves each selected option key to its display
// text. Every question yields exactly one entry; unanswered questions map to
// the empty string rather than being omitted.
func BuildSubmissionPayload(questions []domain.Question, answers map[string]string) map[string]string {
	payload := make(map[string]string, len(questions))
	for _, q := range questions {
		text := ""
		if key, ok := answers[q.ID]; ok {
			text = q.Options[key]
		}
		payload[q.ID] = text
	}
	return payload
}

// IsCorrect reports whether the user's selected key resolves to the
// server-declared correct text. Comparison is exact, not case-normalized;
// an absent or unknown key is never correct.
func IsCorrect(userKey string, q domain.Question, correctText string) bool {
	text, ok := q.Options[userKey]
	return ok && text == correctText
}
