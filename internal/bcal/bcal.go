// Package bcal computes the deterministic "brain calories" cognitive-load
// score for practice questions and sessions.
package bcal

import (
	"math"

	"github.com/vilela/ideaflash/internal/models"
)

// Config holds every numeric weight of the scoring formula. It is an
// immutable value injected into the Scorer at construction, so tuning never
// touches the formula itself.
type Config struct {
	Base float64

	TypeWeights       map[models.QuestionType]float64
	DifficultyWeights map[models.Difficulty]float64

	// State weights are not additive: the most effortful applicable state
	// wins.
	FreshWeight          float64
	ReviewWeight         float64
	SpacedFollowUpWeight float64
	CurveballWeight      float64

	// Struggle term: base + latency/divisor + penalties. Latency and
	// answer-change counts are deliberately unclamped; pathological latency
	// signals effortful engagement, not bad input.
	StruggleBase   float64
	LatencyDivisor float64
	HintPenalty    float64
	ChangePenalty  float64

	// Per-lesson aggregate bounds for the displayed number.
	LessonScale float64
	ClampMin    float64
	ClampMax    float64
}

// DefaultConfig returns the tuned default weight table.
func DefaultConfig() Config {
	return Config{
		Base: 10,
		TypeWeights: map[models.QuestionType]float64{
			models.TypeMultipleChoice: 1.0,
			models.TypeOpenEnded:      1.6,
		},
		DifficultyWeights: map[models.Difficulty]float64{
			models.DifficultyEasy:   0.8,
			models.DifficultyMedium: 1.0,
			models.DifficultyHard:   1.3,
		},
		FreshWeight:          1.0,
		ReviewWeight:         1.2,
		SpacedFollowUpWeight: 1.35,
		CurveballWeight:      1.5,
		StruggleBase:         1.0,
		LatencyDivisor:       30,
		HintPenalty:          0.5,
		ChangePenalty:        0.25,
		LessonScale:          1.0,
		ClampMin:             60,
		ClampMax:             500,
	}
}

// Scorer evaluates the scoring formula against a fixed configuration.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer holding the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the brain-calorie cost of a single answered question:
// base × typeWeight × stateWeight × difficultyWeight × struggle.
func (s *Scorer) Score(resp models.SessionResponse) float64 {
	typeWeight, ok := s.cfg.TypeWeights[resp.QuestionType]
	if !ok {
		typeWeight = 1.0
	}
	difficultyWeight, ok := s.cfg.DifficultyWeights[resp.Difficulty]
	if !ok {
		difficultyWeight = 1.0
	}

	stateWeight := s.cfg.FreshWeight
	if resp.IsReview() {
		stateWeight = math.Max(stateWeight, s.cfg.ReviewWeight)
	}
	if resp.IsSpacedFollowUp {
		stateWeight = math.Max(stateWeight, s.cfg.SpacedFollowUpWeight)
	}
	if resp.IsCurveball {
		stateWeight = math.Max(stateWeight, s.cfg.CurveballWeight)
	}

	struggle := s.cfg.StruggleBase + resp.LatencySeconds/s.cfg.LatencyDivisor
	if resp.HintUsed {
		struggle += s.cfg.HintPenalty
	}
	struggle += float64(resp.AnswerChanges) * s.cfg.ChangePenalty

	return s.cfg.Base * typeWeight * stateWeight * difficultyWeight * struggle
}

// LessonTotal aggregates per-question scores into the displayed per-lesson
// number: round(clamp(lessonScale × Σ scores)). The clamp keeps one very
// long session from producing an absurd total.
func (s *Scorer) LessonTotal(responses []models.SessionResponse) int {
	var sum float64
	for _, resp := range responses {
		sum += s.Score(resp)
	}
	total := s.cfg.LessonScale * sum
	if total < s.cfg.ClampMin {
		total = s.cfg.ClampMin
	}
	if total > s.cfg.ClampMax {
		total = s.cfg.ClampMax
	}
	return int(math.Round(total))
}
