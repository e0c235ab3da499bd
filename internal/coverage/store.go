// Package coverage tracks per-concept taxonomy coverage and the derived
// mastery signals.
package coverage

import (
	"context"
	"time"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

// Store records scored responses against concept-coverage rows.
type Store struct {
	repo          repository.CoverageRepository
	baseDelayDays int
}

// NewStore creates a coverage store. baseDelayDays is how far out the first
// spaced follow-up is scheduled once full coverage is reached.
func NewStore(repo repository.CoverageRepository, baseDelayDays int) *Store {
	return &Store{repo: repo, baseDelayDays: baseDelayDays}
}

// RecordResponses folds a session's responses into the (concept, book)
// coverage row, creating it on first contact. Categories only ever grow and
// counters only ever increase; absent prior data is treated as zero.
func (s *Store) RecordResponses(ctx context.Context, conceptID, bookID int64, responses []models.SessionResponse) (*models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("coverage")

	cov, err := s.repo.Get(ctx, conceptID, bookID)
	if err != nil {
		return nil, err
	}
	if cov == nil {
		log.Debug("creating coverage row: concept_id=%d, book_id=%d", conceptID, bookID)
		cov = &models.ConceptCoverage{
			ConceptID:         conceptID,
			BookID:            bookID,
			CoveredCategories: models.NewCategorySet(),
		}
	}

	for _, resp := range responses {
		cov.TotalQuestionsSeen++
		if resp.IsCorrect {
			cov.TotalQuestionsCorrect++
			cov.CoveredCategories.Add(resp.Category)
		}
	}
	if cov.TotalQuestionsSeen > 0 {
		cov.CurrentAccuracy = float64(cov.TotalQuestionsCorrect) / float64(cov.TotalQuestionsSeen)
	}

	s.snapshotCalibration(cov, responses)

	// First full coverage schedules the spaced follow-up.
	if cov.FullCoverage() && cov.FollowUpDueAt == nil && cov.FollowUpPassedAt == nil {
		due := time.Now().AddDate(0, 0, s.baseDelayDays)
		cov.FollowUpDueAt = &due
		log.Info("full coverage reached: concept_id=%d, follow-up due %s", conceptID, due.Format("2006-01-02"))
	}

	stored, err := s.repo.Upsert(ctx, cov)
	if err != nil {
		log.Error("failed to persist coverage: %v", err)
		return nil, err
	}
	return stored, nil
}

// snapshotCalibration records the hardest correctly-answered question of the
// batch into the follow-up calibration fields. The first snapshot wins;
// later sessions never overwrite it.
func (s *Store) snapshotCalibration(cov *models.ConceptCoverage, responses []models.SessionResponse) {
	if cov.FollowUpCategory != "" {
		return
	}

	best := -1
	var bestResp models.SessionResponse
	for _, resp := range responses {
		if !resp.IsCorrect {
			continue
		}
		if rank := calibrationRank(resp); rank > best {
			best = rank
			bestResp = resp
		}
	}
	if best < 0 {
		return
	}

	cov.FollowUpCategory = bestResp.Category
	cov.FollowUpDifficulty = bestResp.Difficulty
	cov.FollowUpType = bestResp.QuestionType
}

// calibrationRank orders responses by how demanding the question was:
// hard MCQ > medium MCQ > open-ended > easy MCQ.
func calibrationRank(resp models.SessionResponse) int {
	if resp.QuestionType == models.TypeMultipleChoice {
		switch resp.Difficulty {
		case models.DifficultyHard:
			return 3
		case models.DifficultyMedium:
			return 2
		default:
			return 0
		}
	}
	return 1
}

// Progress joins a book's concepts with their coverage rows for list
// rendering. Concepts without a coverage row report zero coverage.
func (s *Store) Progress(ctx context.Context, bookID int64, concepts []models.Concept) ([]models.ConceptProgress, error) {
	rows, err := s.repo.ListByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	byConcept := make(map[int64]*models.ConceptCoverage, len(rows))
	for i := range rows {
		byConcept[rows[i].ConceptID] = &rows[i]
	}

	out := make([]models.ConceptProgress, 0, len(concepts))
	for _, concept := range concepts {
		p := models.ConceptProgress{Concept: concept}
		if cov, ok := byConcept[concept.ID]; ok {
			p.CoveragePercent = cov.CoveragePercent()
			p.Mastered = cov.Mastered()
		}
		out = append(out, p)
	}
	return out, nil
}
