package sqlite

import (
	"context"
	"database/sql"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

type responseRepository struct {
	db *sql.DB
}

// NewResponseRepository creates a new ResponseRepository implementation
func NewResponseRepository(db *sql.DB) repository.ResponseRepository {
	return &responseRepository{db: db}
}

// InsertBatch writes response snapshots. The unique index on
// (session_id, question_index) enforces write-once per question.
func (r *responseRepository) InsertBatch(ctx context.Context, responses []models.SessionResponse) error {
	if len(responses) == 0 {
		return nil
	}
	log := logger.FromContext(ctx).WithPrefix("response_repo")
	log.Debug("inserting %d session responses", len(responses))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO session_responses (session_id, question_index, concept_id, book_id, category, question_type, difficulty,
                               is_correct, latency_seconds, hint_used, answer_changes,
                               review_item_id, is_curveball, is_spaced_follow_up, answered_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		log.Error("failed to prepare insert: %v", err)
		return err
	}
	defer stmt.Close()

	for _, resp := range responses {
		_, err := stmt.ExecContext(ctx,
			resp.SessionID, resp.QuestionIndex, resp.ConceptID, resp.BookID,
			resp.Category, resp.QuestionType, resp.Difficulty,
			resp.IsCorrect, resp.LatencySeconds, resp.HintUsed, resp.AnswerChanges,
			resp.ReviewItemID, resp.IsCurveball, resp.IsSpacedFollowUp, resp.AnsweredAt,
		)
		if err != nil {
			log.Error("failed to insert response: session_id=%d, index=%d: %v",
				resp.SessionID, resp.QuestionIndex, err)
			return err
		}
	}
	return tx.Commit()
}

func (r *responseRepository) BySession(ctx context.Context, sessionID int64) ([]models.SessionResponse, error) {
	log := logger.FromContext(ctx).WithPrefix("response_repo")
	log.Debug("fetching responses: session_id=%d", sessionID)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, question_index, concept_id, book_id, category, question_type, difficulty,
       is_correct, latency_seconds, hint_used, answer_changes,
       review_item_id, is_curveball, is_spaced_follow_up, answered_at
FROM session_responses
WHERE session_id = ?
ORDER BY question_index ASC
`, sessionID)
	if err != nil {
		log.Error("failed to query responses: %v", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.SessionResponse
	for rows.Next() {
		var resp models.SessionResponse
		if err := rows.Scan(
			&resp.ID, &resp.SessionID, &resp.QuestionIndex, &resp.ConceptID, &resp.BookID,
			&resp.Category, &resp.QuestionType, &resp.Difficulty,
			&resp.IsCorrect, &resp.LatencySeconds, &resp.HintUsed, &resp.AnswerChanges,
			&resp.ReviewItemID, &resp.IsCurveball, &resp.IsSpacedFollowUp, &resp.AnsweredAt,
		); err != nil {
			log.Error("failed to scan response row: %v", err)
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
