package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vilela/ideaflash/internal/models"
)

// MockClient produces deterministic, well-formed payloads without network
// access. Used in tests and when GENERATOR_MODE=mock.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload generatedPayload
	switch {
	case strings.Contains(userPrompt, "free-recall"):
		payload.Questions = []models.Question{mockOpenEnded(models.CategoryRecall, models.DifficultyHard, "mock free-recall probe")}
	case strings.Contains(userPrompt, "re-testing"):
		if strings.Contains(userPrompt, "type=open_ended") {
			payload.Questions = []models.Question{mockOpenEnded(models.CategoryHowWield, models.DifficultyHard, "mock follow-up open question")}
		} else {
			payload.Questions = []models.Question{mockMCQ(models.CategoryRecall, models.DifficultyMedium, "mock follow-up question")}
		}
	case strings.Contains(userPrompt, "Rewrite the following"):
		if strings.Contains(userPrompt, `"type":"open_ended"`) {
			payload.Questions = []models.Question{mockOpenEnded(models.CategoryHowWield, models.DifficultyHard, "mock rewritten open question")}
		} else {
			payload.Questions = []models.Question{mockMCQ(models.CategoryRecall, models.DifficultyMedium, "mock rewritten question")}
		}
	default:
		for _, s := range conceptSetPlan() {
			if s.Type == models.TypeOpenEnded {
				payload.Questions = append(payload.Questions, mockOpenEnded(s.Category, s.Difficulty, fmt.Sprintf("mock %s question", s.Category)))
			} else {
				payload.Questions = append(payload.Questions, mockMCQ(s.Category, s.Difficulty, fmt.Sprintf("mock %s question", s.Category)))
			}
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &LLMResponse{Content: string(raw)}, nil
}

func mockMCQ(cat models.Category, diff models.Difficulty, text string) models.Question {
	return models.Question{
		Type:       models.TypeMultipleChoice,
		Difficulty: diff,
		Category:   cat,
		Text:       text,
		Options:    []string{"option alpha", "option bravo", "option charlie", "option delta"},
		CorrectIdx: 0,
	}
}

func mockOpenEnded(cat models.Category, diff models.Difficulty, text string) models.Question {
	return models.Question{
		Type:       models.TypeOpenEnded,
		Difficulty: diff,
		Category:   cat,
		Text:       text,
	}
}
