package models

import (
	"encoding/json"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

// CategorySet is the set of taxonomy categories a concept has answered
// correctly at least once. It is always a subset of the fixed universe.
// The in-memory representation is a real set; serialization to a JSON
// array happens only at the persistence boundary.
type CategorySet map[Category]struct{}

func NewCategorySet(categories ...Category) CategorySet {
	s := make(CategorySet, len(categories))
	for _, c := range categories {
		s.Add(c)
	}
	return s
}

// Add inserts c if it belongs to the fixed universe.
func (s CategorySet) Add(c Category) {
	if ValidCategory(c) {
		s[c] = struct{}{}
	}
}

func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

func (s CategorySet) Len() int {
	return len(s)
}

// Slice returns the covered categories in canonical universe order.
func (s CategorySet) Slice() []Category {
	out := make([]Category, 0, len(s))
	for _, c := range AllCategories() {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s CategorySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *CategorySet) UnmarshalJSON(data []byte) error {
	var categories []Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return err
	}
	*s = NewCategorySet(categories...)
	return nil
}

// ConceptCoverage is the per (concept, book) mastery record. One row per
// pair, created lazily on first response, mutated after every scored
// response, never deleted except by bulk concept removal.
type ConceptCoverage struct {
	ID        int64 `json:"id"`
	ConceptID int64 `json:"concept_id"`
	BookID    int64 `json:"book_id"`

	CoveredCategories     CategorySet `json:"covered_categories"`
	TotalQuestionsSeen    int         `json:"total_questions_seen"`
	TotalQuestionsCorrect int         `json:"total_questions_correct"`
	CurrentAccuracy       float64     `json:"current_accuracy"`

	// Spaced follow-up scheduling state. The category/difficulty pair
	// snapshots the hardest correctly-answered question and calibrates the
	// delayed check; first snapshot wins.
	FollowUpDueAt      *time.Time   `json:"follow_up_due_at"`
	FollowUpPassedAt   *time.Time   `json:"follow_up_passed_at"`
	FollowUpCategory   Category     `json:"follow_up_category,omitempty"`
	FollowUpDifficulty Difficulty   `json:"follow_up_difficulty,omitempty"`
	FollowUpType       QuestionType `json:"follow_up_type,omitempty"`

	// Curveball (durable-retention probe) state.
	CurveballDueAt    *time.Time `json:"curveball_due_at"`
	CurveballPassed   bool       `json:"curveball_passed"`
	CurveballPassedAt *time.Time `json:"curveball_passed_at"`

	// ReviewState is the long-horizon memory model, advanced only after
	// both mastery checks are satisfied. Nil until first advanced.
	ReviewState *fsrs.Card `json:"review_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullCoverage reports whether all 8 categories have been answered correctly
// with at least 8 total correct responses.
func (c *ConceptCoverage) FullCoverage() bool {
	return c.CoveredCategories.Len() == CategoryCount && c.TotalQuestionsCorrect >= CategoryCount
}

// Mastered reports whether the concept has durably crossed the mastery gate:
// full coverage, a passed spaced follow-up, and a passed curveball. All three
// signals are monotonic, so mastery is never revoked.
func (c *ConceptCoverage) Mastered() bool {
	return c.FullCoverage() && c.FollowUpPassedAt != nil && c.CurveballPassed
}

// CoveragePercent returns covered categories as a fraction of the universe,
// in [0, 100].
func (c *ConceptCoverage) CoveragePercent() float64 {
	return float64(c.CoveredCategories.Len()) / float64(CategoryCount) * 100
}
