// Package reviewqueue maintains the backlog of missed questions and
// scheduled retrieval checks awaiting re-presentation.
package reviewqueue

import (
	"context"
	"time"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

// Daily serving caps. A hard ceiling on review load regardless of backlog
// size.
const (
	MaxDailyMCQ       = 3
	MaxDailyOpenEnded = 1
)

// Queue wraps the review-item backlog.
type Queue struct {
	repo repository.ReviewItemRepository
}

// New creates a review queue over the given repository.
func New(repo repository.ReviewItemRepository) *Queue {
	return &Queue{repo: repo}
}

// AddMistakes inserts a backlog item for every incorrect response to a fresh
// question. An equivalent open item for the same concept and category is not
// duplicated; one backlog entry per gap is enough.
func (q *Queue) AddMistakes(ctx context.Context, session *models.Session, responses []models.SessionResponse) error {
	log := logger.FromContext(ctx).WithPrefix("review_queue")

	added := 0
	for _, resp := range responses {
		if resp.IsCorrect || resp.IsReview() {
			continue
		}
		if resp.QuestionIndex < 0 || resp.QuestionIndex >= len(session.Questions) {
			log.Warn("response references question index %d outside session %d, skipping",
				resp.QuestionIndex, session.ID)
			continue
		}

		exists, err := q.repo.HasOpenItem(ctx, resp.ConceptID, resp.Category)
		if err != nil {
			return err
		}
		if exists {
			log.Debug("open item already covers gap: concept_id=%d, category=%s", resp.ConceptID, resp.Category)
			continue
		}

		question := session.Questions[resp.QuestionIndex]
		_, err = q.repo.Insert(ctx, models.ReviewItem{
			ConceptID:    resp.ConceptID,
			BookID:       resp.BookID,
			QuestionText: question.Text,
			QuestionType: question.Type,
			Difficulty:   question.Difficulty,
			Category:     question.Category,
			Options:      question.Options,
			CorrectIdx:   question.CorrectIdx,
		})
		if err != nil {
			return err
		}
		added++
	}

	if added > 0 {
		log.Info("added %d mistakes to review queue: session_id=%d", added, session.ID)
	}
	return nil
}

// EnsureCheckItem inserts a backlog item for a due spaced follow-up or
// curveball, reusing an equivalent open check item if one already exists.
// Returns the item ID and whether a new item was created.
func (q *Queue) EnsureCheckItem(ctx context.Context, item models.ReviewItem) (int64, bool, error) {
	log := logger.FromContext(ctx).WithPrefix("review_queue")

	open, err := q.repo.OpenItems(ctx, models.ReviewItemFilter{
		ConceptID: item.ConceptID,
		OpenOnly:  true,
	})
	if err != nil {
		return 0, false, err
	}
	for _, existing := range open {
		if existing.IsCurveball == item.IsCurveball && existing.IsSpacedFollowUp == item.IsSpacedFollowUp &&
			(item.IsCurveball || item.IsSpacedFollowUp) {
			log.Debug("check item already queued: concept_id=%d, id=%d", item.ConceptID, existing.ID)
			return existing.ID, false, nil
		}
	}

	id, err := q.repo.Insert(ctx, item)
	if err != nil {
		return 0, false, err
	}
	log.Debug("check item queued: concept_id=%d, id=%d, curveball=%v", item.ConceptID, id, item.IsCurveball)
	return id, true, nil
}

// DailyItems selects the day's review load for a book: up to 3 MCQ and 1
// open-ended item, oldest first. Plain mistakes only; spaced follow-ups and
// curveballs are served exclusively on their coverage-row due dates, so an
// open check item awaiting its retry day never leaks into the daily serving.
func (q *Queue) DailyItems(ctx context.Context, bookID int64) (mcq []models.ReviewItem, openEnded []models.ReviewItem, err error) {
	mcq, err = q.repo.OpenItems(ctx, models.ReviewItemFilter{
		BookID:        bookID,
		QuestionType:  models.TypeMultipleChoice,
		OpenOnly:      true,
		ExcludeChecks: true,
		Limit:         MaxDailyMCQ,
	})
	if err != nil {
		return nil, nil, err
	}

	openEnded, err = q.repo.OpenItems(ctx, models.ReviewItemFilter{
		BookID:        bookID,
		QuestionType:  models.TypeOpenEnded,
		OpenOnly:      true,
		ExcludeChecks: true,
		Limit:         MaxDailyOpenEnded,
	})
	if err != nil {
		return nil, nil, err
	}
	return mcq, openEnded, nil
}

// ResolveServed marks served review items completed according to their kind:
// curveballs unconditionally (a one-shot probe, pass or fail), everything
// else only when answered correctly.
func (q *Queue) ResolveServed(ctx context.Context, responses []models.SessionResponse) error {
	log := logger.FromContext(ctx).WithPrefix("review_queue")

	var done []int64
	for _, resp := range responses {
		if !resp.IsReview() {
			continue
		}
		if resp.IsCurveball || resp.IsCorrect {
			done = append(done, resp.ReviewItemID)
		}
	}
	if len(done) == 0 {
		return nil
	}

	log.Info("completing %d review items", len(done))
	return q.repo.MarkCompleted(ctx, done, time.Now())
}

// CountOpen returns the number of open backlog items for a book.
func (q *Queue) CountOpen(ctx context.Context, bookID int64) (int, error) {
	return q.repo.CountOpen(ctx, bookID)
}
