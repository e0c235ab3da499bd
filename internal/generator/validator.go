package generator

import (
	"fmt"
	"strings"

	"github.com/vilela/ideaflash/internal/models"
)

const (
	requiredOptions = 4
	// Options are "comparable" when the longest is at most this many times
	// the shortest; a giveaway-length correct answer fails validation.
	maxOptionLengthRatio = 4
)

// ValidateQuestion checks a single question descriptor's shape before it is
// accepted into a session.
func ValidateQuestion(q models.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("empty question text")
	}
	if !models.ValidCategory(q.Category) {
		return fmt.Errorf("unknown category %q", q.Category)
	}

	switch q.Type {
	case models.TypeOpenEnded:
		if len(q.Options) != 0 {
			return fmt.Errorf("open-ended question must not have options")
		}
		return nil
	case models.TypeMultipleChoice:
		return validateOptions(q)
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
}

func validateOptions(q models.Question) error {
	if len(q.Options) != requiredOptions {
		return fmt.Errorf("expected %d options, got %d", requiredOptions, len(q.Options))
	}
	if q.CorrectIdx < 0 || q.CorrectIdx >= requiredOptions {
		return fmt.Errorf("correct index %d out of range", q.CorrectIdx)
	}

	shortest, longest := -1, 0
	seen := make(map[string]bool, requiredOptions)
	for i, opt := range q.Options {
		trimmed := strings.TrimSpace(opt)
		if trimmed == "" {
			return fmt.Errorf("option %d is empty", i)
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			return fmt.Errorf("duplicate option %q", trimmed)
		}
		seen[key] = true

		n := len(trimmed)
		if shortest < 0 || n < shortest {
			shortest = n
		}
		if n > longest {
			longest = n
		}
	}
	if longest > shortest*maxOptionLengthRatio {
		return fmt.Errorf("option lengths not comparable: shortest=%d, longest=%d", shortest, longest)
	}
	return nil
}

// fallbackQuestion synthesizes a serviceable open-ended question for a slot
// when the collaborator's output for it could not be validated.
func fallbackQuestion(concept models.Concept, s slot) models.Question {
	text := fallbackText(concept.Title, s.Category)
	return models.Question{
		Type:                models.TypeOpenEnded,
		Difficulty:          s.Difficulty,
		Category:            s.Category,
		Text:                text,
		CriticalApplication: s.Category == models.CategoryHowWield,
	}
}

func fallbackText(title string, category models.Category) string {
	switch category {
	case models.CategoryRecall:
		return fmt.Sprintf("In your own words, what is %q about?", title)
	case models.CategoryApply:
		return fmt.Sprintf("Describe a situation from your own life where you could apply %q.", title)
	case models.CategoryWhyImportant:
		return fmt.Sprintf("Why does %q matter? What would you lose by ignoring it?", title)
	case models.CategoryWhenUse:
		return fmt.Sprintf("When is %q the right tool, and when is it not?", title)
	case models.CategoryContrast:
		return fmt.Sprintf("How does %q differ from the conventional approach to the same problem?", title)
	case models.CategoryReframe:
		return fmt.Sprintf("Explain %q to someone from a completely different field.", title)
	case models.CategoryCritique:
		return fmt.Sprintf("What is the strongest argument against %q?", title)
	default:
		return fmt.Sprintf("Walk through, step by step, how you would put %q into practice this week.", title)
	}
}
