package generator

import (
	"context"
	"fmt"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
)

// Generator wraps an LLMClient with bounded retry and per-question fallback
// synthesis, so callers always get a usable question set.
type Generator struct {
	llm     LLMClient
	retries int
}

// New creates a Generator. retries is the number of extra generation
// attempts after the first before fallbacks kick in.
func New(llm LLMClient, retries int) *Generator {
	if retries < 0 {
		retries = 0
	}
	return &Generator{llm: llm, retries: retries}
}

// NewFromMode wires the backend for the configured mode: "api" for the
// Anthropic API, "mock" for deterministic local output.
func NewFromMode(mode, model string, retries int) *Generator {
	log := logger.Default().WithPrefix("generator")
	switch mode {
	case "mock":
		log.Info("generator using mock backend")
		return New(NewMockClient(), retries)
	default:
		log.Info("generator using Anthropic API: %s", model)
		return New(NewAPIClient(model), retries)
	}
}

// ConceptSet generates the fresh 8-question set for a concept: one question
// per taxonomy category per the slot plan. Slots the collaborator could not
// fill validly after all retries are synthesized locally.
func (g *Generator) ConceptSet(ctx context.Context, concept models.Concept) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("generator")
	plan := conceptSetPlan()

	filled := make(map[models.Category]models.Question, len(plan))
	for attempt := 0; attempt <= g.retries && len(filled) < len(plan); attempt++ {
		resp, err := g.llm.Generate(ctx, systemPrompt(), conceptSetPrompt(concept))
		if err != nil {
			log.Warn("concept set attempt %d failed: %v", attempt+1, err)
			continue
		}
		questions, err := ParseQuestions(resp.Content)
		if err != nil {
			log.Warn("concept set attempt %d unparseable: %v", attempt+1, err)
			continue
		}
		for _, q := range questions {
			if _, ok := filled[q.Category]; ok {
				continue
			}
			if err := ValidateQuestion(q); err != nil {
				log.Debug("rejected question for %s: %v", q.Category, err)
				continue
			}
			filled[q.Category] = q
		}
	}

	out := make([]models.Question, 0, len(plan))
	for _, s := range plan {
		q, ok := filled[s.Category]
		if !ok {
			log.Warn("synthesizing fallback for category %s: concept_id=%d", s.Category, concept.ID)
			q = fallbackQuestion(concept, s)
		}
		// The slot plan is authoritative for type and difficulty, whatever
		// the collaborator claimed.
		if q.Type != models.TypeOpenEnded {
			q.Type = s.Type
		}
		q.Difficulty = s.Difficulty
		q.Category = s.Category
		q.CriticalApplication = s.Category == models.CategoryHowWield && q.Type == models.TypeOpenEnded
		out = append(out, q)
	}
	return out, nil
}

// RewriteItem asks for a reworded variant of a review item's question. When
// the collaborator cannot produce a valid variant the stored original is
// served again.
func (g *Generator) RewriteItem(ctx context.Context, item models.ReviewItem) models.Question {
	log := logger.FromContext(ctx).WithPrefix("generator")

	for attempt := 0; attempt <= g.retries; attempt++ {
		resp, err := g.llm.Generate(ctx, systemPrompt(), rewritePrompt(item))
		if err != nil {
			log.Warn("rewrite attempt %d failed: %v", attempt+1, err)
			continue
		}
		questions, err := ParseQuestions(resp.Content)
		if err != nil || len(questions) == 0 {
			log.Warn("rewrite attempt %d unparseable", attempt+1)
			continue
		}
		q := questions[0]
		q.Type = item.QuestionType
		q.Difficulty = item.Difficulty
		q.Category = item.Category
		if err := ValidateQuestion(q); err != nil {
			log.Debug("rejected rewrite: %v", err)
			continue
		}
		return q
	}

	log.Debug("serving original review question: item_id=%d", item.ID)
	return models.Question{
		Type:       item.QuestionType,
		Difficulty: item.Difficulty,
		Category:   item.Category,
		Text:       item.QuestionText,
		Options:    item.Options,
		CorrectIdx: item.CorrectIdx,
	}
}

// FollowUp generates the spaced follow-up question for a concept, calibrated
// to the category, type and difficulty snapshotted at full coverage.
func (g *Generator) FollowUp(ctx context.Context, concept models.Concept, category models.Category, qtype models.QuestionType, difficulty models.Difficulty) models.Question {
	log := logger.FromContext(ctx).WithPrefix("generator")
	s := slot{Category: category, Type: qtype, Difficulty: difficulty}

	for attempt := 0; attempt <= g.retries; attempt++ {
		resp, err := g.llm.Generate(ctx, systemPrompt(), followUpPrompt(concept, s))
		if err != nil {
			log.Warn("follow-up attempt %d failed: %v", attempt+1, err)
			continue
		}
		questions, err := ParseQuestions(resp.Content)
		if err != nil || len(questions) == 0 {
			continue
		}
		q := questions[0]
		q.Category = s.Category
		q.Difficulty = s.Difficulty
		if q.Type != s.Type {
			continue
		}
		if err := ValidateQuestion(q); err != nil {
			log.Debug("rejected follow-up question: %v", err)
			continue
		}
		q.IsSpacedFollowUp = true
		return q
	}

	log.Warn("synthesizing fallback follow-up: concept_id=%d", concept.ID)
	q := fallbackQuestion(concept, s)
	q.IsSpacedFollowUp = true
	return q
}

// Curveball generates the single free-recall probe for a concept. The probe
// is deliberately content-agnostic so it cannot be answered by
// pattern-matching an earlier question.
func (g *Generator) Curveball(ctx context.Context, concept models.Concept) models.Question {
	log := logger.FromContext(ctx).WithPrefix("generator")

	for attempt := 0; attempt <= g.retries; attempt++ {
		resp, err := g.llm.Generate(ctx, systemPrompt(), curveballPrompt(concept))
		if err != nil {
			log.Warn("curveball attempt %d failed: %v", attempt+1, err)
			continue
		}
		questions, err := ParseQuestions(resp.Content)
		if err != nil || len(questions) == 0 {
			continue
		}
		q := questions[0]
		q.Type = models.TypeOpenEnded
		q.Options = nil
		q.Difficulty = models.DifficultyHard
		q.IsCurveball = true
		if !models.ValidCategory(q.Category) {
			q.Category = models.CategoryRecall
		}
		if err := ValidateQuestion(q); err != nil {
			continue
		}
		return q
	}

	return models.Question{
		Type:        models.TypeOpenEnded,
		Difficulty:  models.DifficultyHard,
		Category:    models.CategoryRecall,
		Text:        fmt.Sprintf("From memory, explain the idea %q: what it says, why it matters, and how you would use it.", concept.Title),
		IsCurveball: true,
	}
}
