package models

// Category is one of the 8 fixed cognitive-skill labels a question is
// classified under. The universe never grows at runtime.
type Category string

const (
	CategoryRecall       Category = "recall"
	CategoryApply        Category = "apply"
	CategoryWhyImportant Category = "why_important"
	CategoryWhenUse      Category = "when_use"
	CategoryContrast     Category = "contrast"
	CategoryReframe      Category = "reframe"
	CategoryCritique     Category = "critique"
	CategoryHowWield     Category = "how_wield"
)

// AllCategories returns the fixed category universe in canonical order.
func AllCategories() []Category {
	return []Category{
		CategoryRecall,
		CategoryApply,
		CategoryWhyImportant,
		CategoryWhenUse,
		CategoryContrast,
		CategoryReframe,
		CategoryCritique,
		CategoryHowWield,
	}
}

// CategoryCount is the size of the fixed category universe.
const CategoryCount = 8

// ValidCategory reports whether c belongs to the fixed universe.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryRecall, CategoryApply, CategoryWhyImportant, CategoryWhenUse,
		CategoryContrast, CategoryReframe, CategoryCritique, CategoryHowWield:
		return true
	}
	return false
}

// QuestionType distinguishes closed-form from free-text questions.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "mcq"
	TypeOpenEnded      QuestionType = "open_ended"
)

// Difficulty is the question difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyRank maps a difficulty tier to an ascending sort key.
// Unknown tiers sort between easy and hard.
func DifficultyRank(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyHard:
		return 2
	default:
		return 1
	}
}

// Question is a single practice question inside a session's question set.
// Options and CorrectIndex are only meaningful for multiple-choice questions.
type Question struct {
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
	Category   Category     `json:"category"`
	Text       string       `json:"text"`
	Options    []string     `json:"options,omitempty"`
	CorrectIdx int          `json:"correct_idx"`

	// CriticalApplication marks the one open-ended question that is forced
	// into the last slot of the hard group at assembly time.
	CriticalApplication bool `json:"critical_application,omitempty"`

	// Review provenance. ReviewItemID is 0 for fresh questions.
	ReviewItemID     int64 `json:"review_item_id,omitempty"`
	IsCurveball      bool  `json:"is_curveball,omitempty"`
	IsSpacedFollowUp bool  `json:"is_spaced_follow_up,omitempty"`
}

// IsReview reports whether the question was pulled from the review queue
// rather than freshly generated.
func (q Question) IsReview() bool {
	return q.ReviewItemID != 0
}
