package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, concept_id, book_id, type, status, questions, review_item_ids, fingerprint,
       current_index, error_message, created_at, updated_at, completed_at`

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s             models.Session
		questionsJSON string
		reviewIDsJSON string
		completedAt   sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.ConceptID, &s.BookID, &s.Type, &s.Status, &questionsJSON, &reviewIDsJSON,
		&s.Fingerprint, &s.CurrentIndex, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questionsJSON), &s.Questions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reviewIDsJSON), &s.ReviewItemIDs); err != nil {
		return nil, err
	}
	s.CompletedAt = timePtr(completedAt)
	return &s, nil
}

func (r *sessionRepository) Insert(ctx context.Context, session models.Session) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("inserting session: concept_id=%d, book_id=%d, type=%s, status=%s",
		session.ConceptID, session.BookID, session.Type, session.Status)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (concept_id, book_id, type, status, questions, review_item_ids, fingerprint, current_index, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, session.ConceptID, session.BookID, session.Type, session.Status,
		marshalJSON(session.Questions, "[]"), marshalJSON(session.ReviewItemIDs, "[]"),
		session.Fingerprint, session.CurrentIndex, session.ErrorMessage)
	if err != nil {
		log.Error("failed to insert session: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get session id: %v", err)
		return 0, err
	}
	log.Debug("session inserted: id=%d", id)
	return id, nil
}

func (r *sessionRepository) Get(ctx context.Context, id int64) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")

	s, err := scanSession(r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE id = ?
`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found: id=%d", id)
			return nil, nil
		}
		log.Error("failed to get session: %v", err)
		return nil, err
	}
	return s, nil
}

// FindByKey returns the latest non-terminal session for the given ownership
// key, or nil when none exists. At most one such session is authoritative.
func (r *sessionRepository) FindByKey(ctx context.Context, bookID int64, sessionType models.SessionType, conceptID int64) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("finding session by key: book_id=%d, type=%s, concept_id=%d", bookID, sessionType, conceptID)

	s, err := scanSession(r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE book_id = ? AND type = ? AND concept_id = ? AND status != ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, bookID, sessionType, conceptID, models.SessionCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error("failed to find session by key: %v", err)
		return nil, err
	}
	return s, nil
}

func (r *sessionRepository) UpdateStatus(ctx context.Context, id int64, status models.SessionStatus, errorMessage string) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("updating session status: id=%d, status=%s", id, status)

	_, err := r.db.ExecContext(ctx, `
UPDATE sessions
SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, status, errorMessage, id)
	if err != nil {
		log.Error("failed to update session status: %v", err)
	}
	return err
}

func (r *sessionRepository) UpdateQuestions(ctx context.Context, id int64, questions []models.Question, reviewItemIDs []int64, fingerprint string) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("updating session questions: id=%d, count=%d", id, len(questions))

	_, err := r.db.ExecContext(ctx, `
UPDATE sessions
SET questions = ?, review_item_ids = ?, fingerprint = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, marshalJSON(questions, "[]"), marshalJSON(reviewItemIDs, "[]"), fingerprint, id)
	if err != nil {
		log.Error("failed to update session questions: %v", err)
	}
	return err
}

func (r *sessionRepository) UpdateProgress(ctx context.Context, id int64, currentIndex int, status models.SessionStatus) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("updating session progress: id=%d, index=%d, status=%s", id, currentIndex, status)

	_, err := r.db.ExecContext(ctx, `
UPDATE sessions
SET current_index = ?, status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, currentIndex, status, id)
	if err != nil {
		log.Error("failed to update session progress: %v", err)
	}
	return err
}

func (r *sessionRepository) Complete(ctx context.Context, id int64, completedAt time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("completing session: id=%d", id)

	_, err := r.db.ExecContext(ctx, `
UPDATE sessions
SET status = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, models.SessionCompleted, completedAt, id)
	if err != nil {
		log.Error("failed to complete session: %v", err)
	}
	return err
}

func (r *sessionRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("deleting session: id=%d", id)

	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete session: %v", err)
	}
	return err
}
