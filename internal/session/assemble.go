package session

import (
	"context"
	"sort"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
)

// assembleConcept builds a concept session's question set: the freshly
// generated 8-question set ordered easy to hard with the critical-application
// question closing the hard group, followed by the day's review items.
func (s *Service) assembleConcept(ctx context.Context, concept models.Concept) ([]models.Question, []int64, error) {
	fresh, err := s.gen.ConceptSet(ctx, concept)
	if err != nil {
		return nil, nil, err
	}
	orderFresh(fresh)

	reviewQs, reviewIDs, err := s.dailyReviewQuestions(ctx, concept.BookID)
	if err != nil {
		return nil, nil, err
	}

	return append(fresh, reviewQs...), reviewIDs, nil
}

// assembleReview builds a review session: the day's capped review items plus
// every due spaced follow-up and curveball, ordered easy to hard.
func (s *Service) assembleReview(ctx context.Context, bookID int64) ([]models.Question, []int64, error) {
	questions, reviewIDs, err := s.dailyReviewQuestions(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[int64]bool, len(reviewIDs))
	for _, id := range reviewIDs {
		seen[id] = true
	}

	checkQs, checkIDs, err := s.dueCheckQuestions(ctx, bookID, seen)
	if err != nil {
		return nil, nil, err
	}
	questions = append(questions, checkQs...)
	reviewIDs = append(reviewIDs, checkIDs...)

	sort.SliceStable(questions, func(i, j int) bool {
		return models.DifficultyRank(questions[i].Difficulty) < models.DifficultyRank(questions[j].Difficulty)
	})
	return questions, reviewIDs, nil
}

// dailyReviewQuestions pulls the day's capped backlog serving and rewords
// each item before presentation, so a retry never repeats verbatim.
func (s *Service) dailyReviewQuestions(ctx context.Context, bookID int64) ([]models.Question, []int64, error) {
	mcq, openEnded, err := s.queue.DailyItems(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	items := append(mcq, openEnded...)
	sort.SliceStable(items, func(i, j int) bool {
		return models.DifficultyRank(items[i].Difficulty) < models.DifficultyRank(items[j].Difficulty)
	})

	questions := make([]models.Question, 0, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		questions = append(questions, s.serveItem(ctx, item))
		ids = append(ids, item.ID)
	}
	return questions, ids, nil
}

// dueCheckQuestions materializes due spaced follow-ups and curveballs into
// backlog items and session questions. Items already bundled via the daily
// serving are skipped.
func (s *Service) dueCheckQuestions(ctx context.Context, bookID int64, seen map[int64]bool) ([]models.Question, []int64, error) {
	log := logger.FromContext(ctx).WithPrefix("session")

	var questions []models.Question
	var ids []int64

	dueFollowUps, err := s.sched.DueFollowUps(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	for _, cov := range dueFollowUps {
		concept, err := s.concepts.GetConcept(ctx, cov.ConceptID)
		if err != nil {
			return nil, nil, err
		}
		if concept == nil {
			log.Warn("due follow-up for missing concept: concept_id=%d", cov.ConceptID)
			continue
		}

		category, qtype, difficulty := followUpCalibration(cov)
		q := s.gen.FollowUp(ctx, *concept, category, qtype, difficulty)
		item, err := s.ensureServedItem(ctx, models.ReviewItem{
			ConceptID:        cov.ConceptID,
			BookID:           bookID,
			QuestionText:     q.Text,
			QuestionType:     q.Type,
			Difficulty:       q.Difficulty,
			Category:         q.Category,
			Options:          q.Options,
			CorrectIdx:       q.CorrectIdx,
			IsSpacedFollowUp: true,
		})
		if err != nil {
			return nil, nil, err
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		questions = append(questions, s.serveItem(ctx, *item))
		ids = append(ids, item.ID)
	}

	dueCurveballs, err := s.sched.DueCurveballs(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	for _, cov := range dueCurveballs {
		concept, err := s.concepts.GetConcept(ctx, cov.ConceptID)
		if err != nil {
			return nil, nil, err
		}
		if concept == nil {
			log.Warn("due curveball for missing concept: concept_id=%d", cov.ConceptID)
			continue
		}

		q := s.gen.Curveball(ctx, *concept)
		item, err := s.ensureServedItem(ctx, models.ReviewItem{
			ConceptID:    cov.ConceptID,
			BookID:       bookID,
			QuestionText: q.Text,
			QuestionType: q.Type,
			Difficulty:   q.Difficulty,
			Category:     q.Category,
			IsCurveball:  true,
		})
		if err != nil {
			return nil, nil, err
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		questions = append(questions, s.serveItem(ctx, *item))
		ids = append(ids, item.ID)
	}

	return questions, ids, nil
}

// ensureServedItem queues a check item, reusing an equivalent open one.
func (s *Service) ensureServedItem(ctx context.Context, item models.ReviewItem) (*models.ReviewItem, error) {
	id, created, err := s.queue.EnsureCheckItem(ctx, item)
	if err != nil {
		return nil, err
	}
	if created {
		item.ID = id
		return &item, nil
	}
	return s.reviewItems.Get(ctx, id)
}

// serveItem turns a backlog item into a session question. Plain mistakes are
// reworded; check items are served exactly as queued.
func (s *Service) serveItem(ctx context.Context, item models.ReviewItem) models.Question {
	var q models.Question
	if item.IsCurveball || item.IsSpacedFollowUp {
		q = models.Question{
			Type:       item.QuestionType,
			Difficulty: item.Difficulty,
			Category:   item.Category,
			Text:       item.QuestionText,
			Options:    item.Options,
			CorrectIdx: item.CorrectIdx,
		}
	} else {
		q = s.gen.RewriteItem(ctx, item)
	}
	q.ReviewItemID = item.ID
	q.IsCurveball = item.IsCurveball
	q.IsSpacedFollowUp = item.IsSpacedFollowUp
	return q
}

// orderFresh sorts a fresh set easy to hard, the critical-application
// question last within its difficulty tier.
func orderFresh(questions []models.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return freshRank(questions[i]) < freshRank(questions[j])
	})
}

func freshRank(q models.Question) int {
	rank := models.DifficultyRank(q.Difficulty) * 2
	if q.CriticalApplication {
		rank++
	}
	return rank
}

// followUpCalibration reads the snapshotted follow-up shape off a coverage
// row, with a free-recall default for rows predating the snapshot fields.
func followUpCalibration(cov models.ConceptCoverage) (models.Category, models.QuestionType, models.Difficulty) {
	category := cov.FollowUpCategory
	if category == "" {
		category = models.CategoryRecall
	}
	qtype := cov.FollowUpType
	if qtype == "" {
		qtype = models.TypeOpenEnded
	}
	difficulty := cov.FollowUpDifficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	return category, qtype, difficulty
}
