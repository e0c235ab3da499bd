package generator

import (
	"fmt"
	"strings"

	"github.com/vilela/ideaflash/internal/models"
)

// slotPlan pins down the shape of a fresh concept set: one question per
// taxonomy category, with a fixed type/difficulty assignment. The HowWield
// slot is the open-ended critical-application question.
type slot struct {
	Category   models.Category
	Type       models.QuestionType
	Difficulty models.Difficulty
}

func conceptSetPlan() []slot {
	return []slot{
		{models.CategoryRecall, models.TypeMultipleChoice, models.DifficultyEasy},
		{models.CategoryWhyImportant, models.TypeMultipleChoice, models.DifficultyEasy},
		{models.CategoryApply, models.TypeMultipleChoice, models.DifficultyMedium},
		{models.CategoryWhenUse, models.TypeMultipleChoice, models.DifficultyMedium},
		{models.CategoryContrast, models.TypeMultipleChoice, models.DifficultyMedium},
		{models.CategoryReframe, models.TypeMultipleChoice, models.DifficultyHard},
		{models.CategoryCritique, models.TypeMultipleChoice, models.DifficultyHard},
		{models.CategoryHowWield, models.TypeOpenEnded, models.DifficultyHard},
	}
}

func systemPrompt() string {
	return `You write retrieval-practice questions for readers who want to durably learn ideas from books.
Respond with JSON only, no prose, no code fences. Multiple-choice questions have exactly 4 options
of similar length with a single correct answer. Open-ended questions have no options.`
}

func conceptSetPrompt(concept models.Concept) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write one question per line of the plan below for this idea.\n\n")
	fmt.Fprintf(&sb, "Idea: %s\n", concept.Title)
	if concept.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", concept.Description)
	}
	sb.WriteString("\nPlan:\n")
	for _, s := range conceptSetPlan() {
		fmt.Fprintf(&sb, "- category=%s type=%s difficulty=%s\n", s.Category, s.Type, s.Difficulty)
	}
	sb.WriteString(`
Return JSON of the form:
{"questions":[{"category":"recall","type":"mcq","difficulty":"easy","text":"...","options":["...","...","...","..."],"correct_idx":0}]}
Open-ended questions omit "options" and "correct_idx".`)
	return sb.String()
}

func rewritePrompt(item models.ReviewItem) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the following question so it tests the same knowledge with different wording and, for multiple choice, reshuffled options.\n\n")
	fmt.Fprintf(&sb, "Original (category=%s, type=%s, difficulty=%s): %s\n", item.Category, item.QuestionType, item.Difficulty, item.QuestionText)
	if item.QuestionType == models.TypeMultipleChoice {
		for i, opt := range item.Options {
			marker := " "
			if i == item.CorrectIdx {
				marker = "*"
			}
			fmt.Fprintf(&sb, "%s %s\n", marker, opt)
		}
	}
	sb.WriteString(`
Return JSON of the form:
{"questions":[{"category":"` + string(item.Category) + `","type":"` + string(item.QuestionType) + `","difficulty":"` + string(item.Difficulty) + `","text":"...","options":["...","...","...","..."],"correct_idx":0}]}`)
	return sb.String()
}

func followUpPrompt(concept models.Concept, s slot) string {
	var sb strings.Builder
	sb.WriteString("Write ONE question re-testing this idea some days after the reader last practiced it.\n")
	sb.WriteString("Match the requested category, type and difficulty exactly.\n\n")
	fmt.Fprintf(&sb, "Idea: %s\n", concept.Title)
	if concept.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", concept.Description)
	}
	fmt.Fprintf(&sb, "\nRequested: category=%s type=%s difficulty=%s\n", s.Category, s.Type, s.Difficulty)
	sb.WriteString(`
Return JSON of the form:
{"questions":[{"category":"` + string(s.Category) + `","type":"` + string(s.Type) + `","difficulty":"` + string(s.Difficulty) + `","text":"...","options":["...","...","...","..."],"correct_idx":0}]}
Open-ended questions omit "options" and "correct_idx".`)
	return sb.String()
}

func curveballPrompt(concept models.Concept) string {
	var sb strings.Builder
	sb.WriteString("Write ONE free-recall prompt asking the reader to explain this idea from memory.\n")
	sb.WriteString("Do not mention specifics from any earlier question; the prompt must not be answerable by pattern-matching a previously seen question.\n\n")
	fmt.Fprintf(&sb, "Idea: %s\n", concept.Title)
	if concept.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", concept.Description)
	}
	sb.WriteString(`
Return JSON of the form:
{"questions":[{"category":"recall","type":"open_ended","difficulty":"hard","text":"..."}]}`)
	return sb.String()
}
