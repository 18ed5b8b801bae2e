// Package questions carries the static fallback question set substituted
// whenever the live generator is unavailable.
package questions

import (
	_ "embed"
	"encoding/json"

	"asaa-quiz-service/internal/domain"
)

//go:embed fallback.json
var fallbackJSON []byte

// Fallback returns a fresh copy of the embedded question set.
func Fallback() []domain.Question {
	var qs []domain.Question
	if err := json.Unmarshal(fallbackJSON, &qs); err != nil {
		// The embedded file ships with the binary; a parse failure is a build
		// defect, not a runtime condition.
		panic("questions: invalid embedded fallback set: " + err.Error())
	}
	return qs
}
