package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

type coverageRepository struct {
	db *sql.DB
}

// NewCoverageRepository creates a new CoverageRepository implementation
func NewCoverageRepository(db *sql.DB) repository.CoverageRepository {
	return &coverageRepository{db: db}
}

const coverageColumns = `id, concept_id, book_id, covered_categories, total_questions_seen, total_questions_correct,
       current_accuracy, follow_up_due_at, follow_up_passed_at, follow_up_category, follow_up_difficulty, follow_up_type,
       curveball_due_at, curveball_passed, curveball_passed_at, review_state, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoverage(row rowScanner) (*models.ConceptCoverage, error) {
	var (
		c                models.ConceptCoverage
		categoriesJSON   string
		followUpDue      sql.NullTime
		followUpPassed   sql.NullTime
		curveballDue     sql.NullTime
		curveballPassed  sql.NullTime
		reviewStateJSON  sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.ConceptID, &c.BookID, &categoriesJSON, &c.TotalQuestionsSeen, &c.TotalQuestionsCorrect,
		&c.CurrentAccuracy, &followUpDue, &followUpPassed, &c.FollowUpCategory, &c.FollowUpDifficulty, &c.FollowUpType,
		&curveballDue, &c.CurveballPassed, &curveballPassed, &reviewStateJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(categoriesJSON), &c.CoveredCategories); err != nil {
		return nil, err
	}
	c.FollowUpDueAt = timePtr(followUpDue)
	c.FollowUpPassedAt = timePtr(followUpPassed)
	c.CurveballDueAt = timePtr(curveballDue)
	c.CurveballPassedAt = timePtr(curveballPassed)

	if reviewStateJSON.Valid && reviewStateJSON.String != "" {
		var card fsrs.Card
		if err := json.Unmarshal([]byte(reviewStateJSON.String), &card); err != nil {
			return nil, err
		}
		c.ReviewState = &card
	}
	return &c, nil
}

func (r *coverageRepository) Get(ctx context.Context, conceptID, bookID int64) (*models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("coverage_repo")

	cov, err := scanCoverage(r.db.QueryRowContext(ctx, `
SELECT `+coverageColumns+`
FROM concept_coverage
WHERE concept_id = ? AND book_id = ?
`, conceptID, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no coverage row yet: concept_id=%d, book_id=%d", conceptID, bookID)
			return nil, nil
		}
		log.Error("failed to get coverage: %v", err)
		return nil, err
	}
	return cov, nil
}

func (r *coverageRepository) Upsert(ctx context.Context, cov *models.ConceptCoverage) (*models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("coverage_repo")
	log.Debug("upserting coverage: concept_id=%d, book_id=%d, covered=%d, correct=%d",
		cov.ConceptID, cov.BookID, cov.CoveredCategories.Len(), cov.TotalQuestionsCorrect)

	var reviewState any
	if cov.ReviewState != nil {
		reviewState = marshalJSON(cov.ReviewState, "")
	}

	stored, err := scanCoverage(r.db.QueryRowContext(ctx, `
INSERT INTO concept_coverage (
    concept_id, book_id, covered_categories, total_questions_seen, total_questions_correct, current_accuracy,
    follow_up_due_at, follow_up_passed_at, follow_up_category, follow_up_difficulty, follow_up_type,
    curveball_due_at, curveball_passed, curveball_passed_at, review_state
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (concept_id, book_id) DO UPDATE SET
    covered_categories = excluded.covered_categories,
    total_questions_seen = excluded.total_questions_seen,
    total_questions_correct = excluded.total_questions_correct,
    current_accuracy = excluded.current_accuracy,
    follow_up_due_at = excluded.follow_up_due_at,
    follow_up_passed_at = excluded.follow_up_passed_at,
    follow_up_category = excluded.follow_up_category,
    follow_up_difficulty = excluded.follow_up_difficulty,
    follow_up_type = excluded.follow_up_type,
    curveball_due_at = excluded.curveball_due_at,
    curveball_passed = excluded.curveball_passed,
    curveball_passed_at = excluded.curveball_passed_at,
    review_state = excluded.review_state,
    updated_at = CURRENT_TIMESTAMP
RETURNING `+coverageColumns+`
`,
		cov.ConceptID, cov.BookID, marshalJSON(cov.CoveredCategories, "[]"),
		cov.TotalQuestionsSeen, cov.TotalQuestionsCorrect, cov.CurrentAccuracy,
		nullTime(cov.FollowUpDueAt), nullTime(cov.FollowUpPassedAt),
		string(cov.FollowUpCategory), string(cov.FollowUpDifficulty), string(cov.FollowUpType),
		nullTime(cov.CurveballDueAt), cov.CurveballPassed, nullTime(cov.CurveballPassedAt), reviewState,
	))
	if err != nil {
		log.Error("failed to upsert coverage: %v", err)
		return nil, err
	}
	return stored, nil
}

func (r *coverageRepository) ListByBook(ctx context.Context, bookID int64) ([]models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("coverage_repo")
	log.Debug("listing coverage: book_id=%d", bookID)

	rows, err := r.db.QueryContext(ctx, `
SELECT `+coverageColumns+`
FROM concept_coverage
WHERE book_id = ?
ORDER BY concept_id ASC
`, bookID)
	if err != nil {
		log.Error("failed to list coverage: %v", err)
		return nil, err
	}
	defer rows.Close()
	return collectCoverage(rows)
}

func (r *coverageRepository) DueFollowUps(ctx context.Context, bookID int64, now time.Time) ([]models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("coverage_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT `+coverageColumns+`
FROM concept_coverage
WHERE book_id = ?
AND follow_up_due_at IS NOT NULL
AND follow_up_due_at <= ?
AND follow_up_passed_at IS NULL
ORDER BY follow_up_due_at ASC
`, bookID, now)
	if err != nil {
		log.Error("failed to query due follow-ups: %v", err)
		return nil, err
	}
	defer rows.Close()
	return collectCoverage(rows)
}

func (r *coverageRepository) DueCurveballs(ctx context.Context, bookID int64, now time.Time) ([]models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("coverage_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT `+coverageColumns+`
FROM concept_coverage
WHERE book_id = ?
AND curveball_due_at IS NOT NULL
AND curveball_due_at <= ?
AND curveball_passed = 0
AND curveball_passed_at IS NULL
ORDER BY curveball_due_at ASC
`, bookID, now)
	if err != nil {
		log.Error("failed to query due curveballs: %v", err)
		return nil, err
	}
	defer rows.Close()
	return collectCoverage(rows)
}

// ForceDue immediately due-dates every scheduled follow-up and curveball for
// a book. Debug/support hook; bypasses the delay arithmetic.
func (r *coverageRepository) ForceDue(ctx context.Context, bookID int64, now time.Time) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("coverage_repo")
	log.Warn("force-due requested: book_id=%d", bookID)

	res, err := r.db.ExecContext(ctx, `
UPDATE concept_coverage
SET follow_up_due_at = CASE WHEN follow_up_due_at IS NOT NULL AND follow_up_passed_at IS NULL THEN ? ELSE follow_up_due_at END,
    curveball_due_at = CASE WHEN curveball_due_at IS NOT NULL AND curveball_passed = 0 THEN ? ELSE curveball_due_at END,
    updated_at = CURRENT_TIMESTAMP
WHERE book_id = ?
`, now, now, bookID)
	if err != nil {
		log.Error("failed to force-due coverage: %v", err)
		return 0, err
	}
	return res.RowsAffected()
}

func collectCoverage(rows *sql.Rows) ([]models.ConceptCoverage, error) {
	var out []models.ConceptCoverage
	for rows.Next() {
		cov, err := scanCoverage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cov)
	}
	return out, rows.Err()
}
