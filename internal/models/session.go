package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a practice session. Status advances
// monotonically except error, which is recovered by delete-and-regenerate.
type SessionStatus string

const (
	SessionGenerating SessionStatus = "generating"
	SessionReady      SessionStatus = "ready"
	SessionInProgress SessionStatus = "in_progress"
	SessionPaused     SessionStatus = "paused"
	SessionCompleted  SessionStatus = "completed"
	SessionError      SessionStatus = "error"
)

// Terminal reports whether the status ends the session's lifecycle.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted
}

// Resumable reports whether a session in this status can be handed back to
// the learner as-is.
func (s SessionStatus) Resumable() bool {
	return s == SessionReady || s == SessionInProgress || s == SessionPaused
}

// SessionType distinguishes a per-concept session from a review bundle.
type SessionType string

const (
	SessionTypeConcept SessionType = "concept"
	SessionTypeReview  SessionType = "review"
)

// Session owns one generated-and-persisted question set. At most one
// non-terminal session per (concept-or-review key, book) is authoritative.
type Session struct {
	ID        int64         `json:"id"`
	ConceptID int64         `json:"concept_id"` // 0 for review bundles
	BookID    int64         `json:"book_id"`
	Type      SessionType   `json:"type"`
	Status    SessionStatus `json:"status"`

	Questions []Question `json:"questions"`

	// ReviewItemIDs records which review items were bundled into this
	// session; Fingerprint is its stable digest, used to detect config
	// drift across resumptions.
	ReviewItemIDs []int64 `json:"review_item_ids,omitempty"`
	Fingerprint   string  `json:"fingerprint,omitempty"`

	// CurrentIndex is the learner's position in the question set; it
	// survives app restarts.
	CurrentIndex int `json:"current_index"`

	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ReviewFingerprint digests a bundle of review-item IDs into a stable,
// order-independent identifier.
func ReviewFingerprint(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprintf("%d", id)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:8])
}

// SessionResponse is the write-once per-question answer snapshot read by the
// coverage store and the cognitive-load scorer.
type SessionResponse struct {
	ID            int64 `json:"id"`
	SessionID     int64 `json:"session_id"`
	QuestionIndex int   `json:"question_index"`
	ConceptID     int64 `json:"concept_id"`
	BookID        int64 `json:"book_id"`

	Category     Category     `json:"category"`
	QuestionType QuestionType `json:"question_type"`
	Difficulty   Difficulty   `json:"difficulty"`

	IsCorrect      bool    `json:"is_correct"`
	LatencySeconds float64 `json:"latency_seconds"`
	HintUsed       bool    `json:"hint_used"`
	AnswerChanges  int     `json:"answer_changes"`

	ReviewItemID     int64 `json:"review_item_id,omitempty"`
	IsCurveball      bool  `json:"is_curveball,omitempty"`
	IsSpacedFollowUp bool  `json:"is_spaced_follow_up,omitempty"`

	AnsweredAt time.Time `json:"answered_at"`
}

// IsReview reports whether the response answered a review-queue question.
func (r SessionResponse) IsReview() bool {
	return r.ReviewItemID != 0
}
