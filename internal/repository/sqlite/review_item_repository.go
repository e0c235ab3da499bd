package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

type reviewItemRepository struct {
	db *sql.DB
}

// NewReviewItemRepository creates a new ReviewItemRepository implementation
func NewReviewItemRepository(db *sql.DB) repository.ReviewItemRepository {
	return &reviewItemRepository{db: db}
}

const reviewItemColumns = `id, concept_id, book_id, question_text, question_type, difficulty, category,
       options, correct_idx, is_curveball, is_spaced_follow_up, is_completed, created_at, completed_at`

func scanReviewItem(row rowScanner) (*models.ReviewItem, error) {
	var (
		item        models.ReviewItem
		optionsJSON string
		completedAt sql.NullTime
	)
	err := row.Scan(
		&item.ID, &item.ConceptID, &item.BookID, &item.QuestionText, &item.QuestionType, &item.Difficulty,
		&item.Category, &optionsJSON, &item.CorrectIdx, &item.IsCurveball, &item.IsSpacedFollowUp,
		&item.IsCompleted, &item.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(optionsJSON), &item.Options); err != nil {
		return nil, err
	}
	item.CompletedAt = timePtr(completedAt)
	return &item, nil
}

func (r *reviewItemRepository) Insert(ctx context.Context, item models.ReviewItem) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("inserting review item: concept_id=%d, category=%s, curveball=%v",
		item.ConceptID, item.Category, item.IsCurveball)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO review_items (concept_id, book_id, question_text, question_type, difficulty, category,
                          options, correct_idx, is_curveball, is_spaced_follow_up, is_completed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, item.ConceptID, item.BookID, item.QuestionText, item.QuestionType, item.Difficulty, item.Category,
		marshalJSON(item.Options, "[]"), item.CorrectIdx, item.IsCurveball, item.IsSpacedFollowUp, item.IsCompleted)
	if err != nil {
		log.Error("failed to insert review item: %v", err)
		return 0, err
	}
	return res.LastInsertId()
}

func (r *reviewItemRepository) Get(ctx context.Context, id int64) (*models.ReviewItem, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	item, err := scanReviewItem(r.db.QueryRowContext(ctx, `
SELECT `+reviewItemColumns+`
FROM review_items
WHERE id = ?
`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("review item not found: id=%d", id)
			return nil, nil
		}
		log.Error("failed to get review item: %v", err)
		return nil, err
	}
	return item, nil
}

func (r *reviewItemRepository) OpenItems(ctx context.Context, filter models.ReviewItemFilter) ([]models.ReviewItem, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("querying open review items: book_id=%d, type=%s, limit=%d",
		filter.BookID, filter.QuestionType, filter.Limit)

	query := sqlBuilder.Select(
		"id", "concept_id", "book_id", "question_text", "question_type", "difficulty", "category",
		"options", "correct_idx", "is_curveball", "is_spaced_follow_up", "is_completed", "created_at", "completed_at",
	).From("review_items")

	// Dynamic WHERE clauses
	if filter.BookID != 0 {
		query = query.Where(squirrel.Eq{"book_id": filter.BookID})
	}
	if filter.ConceptID != 0 {
		query = query.Where(squirrel.Eq{"concept_id": filter.ConceptID})
	}
	if filter.QuestionType != "" {
		query = query.Where(squirrel.Eq{"question_type": filter.QuestionType})
	}
	if filter.OpenOnly {
		query = query.Where(squirrel.Eq{"is_completed": false})
	}
	if filter.ExcludeChecks {
		query = query.Where(squirrel.Eq{"is_curveball": false, "is_spaced_follow_up": false})
	}

	// Oldest-due-first: the longest-standing gap gets retried soonest.
	query = query.OrderBy("created_at ASC", "id ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to query review items: %v", err)
		return nil, err
	}
	defer rows.Close()

	var items []models.ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			log.Error("failed to scan review item row: %v", err)
			return nil, err
		}
		items = append(items, *item)
	}
	log.Debug("found %d open review items", len(items))
	return items, rows.Err()
}

func (r *reviewItemRepository) HasOpenItem(ctx context.Context, conceptID int64, category models.Category) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM review_items
WHERE concept_id = ? AND category = ? AND is_completed = 0 AND is_curveball = 0 AND is_spaced_follow_up = 0
`, conceptID, category).Scan(&count)
	if err != nil {
		log.Error("failed to count open items: %v", err)
		return false, err
	}
	return count > 0, nil
}

func (r *reviewItemRepository) MarkCompleted(ctx context.Context, ids []int64, completedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("marking %d review items completed", len(ids))

	sqlStr, args, err := sqlBuilder.Update("review_items").
		Set("is_completed", true).
		Set("completed_at", completedAt).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		log.Error("failed to build update: %v", err)
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		log.Error("failed to mark review items completed: %v", err)
		return err
	}
	return nil
}

func (r *reviewItemRepository) CountOpen(ctx context.Context, bookID int64) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM review_items
WHERE book_id = ? AND is_completed = 0
`, bookID).Scan(&count)
	if err != nil {
		log.Error("failed to count open review items: %v", err)
		return 0, err
	}
	return count, nil
}
