package models

import "time"

// ReviewItem is one missed or scheduled-retry question waiting in the review
// backlog. Completion is terminal: once IsCompleted is set the item is never
// reopened.
type ReviewItem struct {
	ID        int64 `json:"id"`
	ConceptID int64 `json:"concept_id"`
	BookID    int64 `json:"book_id"`

	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Difficulty   Difficulty   `json:"difficulty"`
	Category     Category     `json:"category"`
	Options      []string     `json:"options,omitempty"`
	CorrectIdx   int          `json:"correct_idx"`

	// Curveballs are one-shot probes: served once and completed regardless
	// of outcome. Spaced follow-ups retry on failure.
	IsCurveball      bool `json:"is_curveball"`
	IsSpacedFollowUp bool `json:"is_spaced_follow_up"`
	IsCompleted      bool `json:"is_completed"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ReviewItemFilter narrows review-item queries. ExcludeChecks drops spaced
// follow-ups and curveballs, which are served on their own due dates rather
// than through the daily backlog.
type ReviewItemFilter struct {
	BookID        int64
	ConceptID     int64
	QuestionType  QuestionType
	OpenOnly      bool
	ExcludeChecks bool
	Limit         int
}
