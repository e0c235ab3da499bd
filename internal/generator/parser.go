package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vilela/ideaflash/internal/models"
)

type generatedPayload struct {
	Questions []models.Question `json:"questions"`
}

// ParseQuestions decodes the collaborator's JSON payload into question
// descriptors. Shape validation is the validator's job; this only handles
// decoding.
func ParseQuestions(responseBody string) ([]models.Question, error) {
	cleaned := stripCodeFences(responseBody)

	var payload generatedPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("no questions in response")
	}
	return payload.Questions, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
