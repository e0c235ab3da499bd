// Package scheduler advances the two retrieval-check tracks of a concept:
// the spaced follow-up and the one-shot curveball, plus the long-horizon
// FSRS review state once both checks are satisfied.
package scheduler

import (
	"context"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

// Config holds the delay arithmetic knobs.
type Config struct {
	RetryDelayDays         int
	CurveballAfterPassDays int
}

// ApplyFollowUpResult applies a spaced follow-up outcome to a coverage row.
// On pass the due date is consumed, the follow-up is marked passed, and a
// curveball is scheduled; on fail the follow-up is pushed out by the retry
// delay and stays unpassed.
func ApplyFollowUpResult(cov models.ConceptCoverage, passed bool, now time.Time, cfg Config) models.ConceptCoverage {
	if passed {
		passedAt := now
		cov.FollowUpDueAt = nil
		cov.FollowUpPassedAt = &passedAt
		if !cov.CurveballPassed && cov.CurveballDueAt == nil {
			due := now.AddDate(0, 0, cfg.CurveballAfterPassDays)
			cov.CurveballDueAt = &due
		}
		return cov
	}

	due := now.AddDate(0, 0, cfg.RetryDelayDays)
	cov.FollowUpDueAt = &due
	return cov
}

// ApplyCurveballResult applies a curveball outcome. A pass satisfies the
// durable-retention mastery gate permanently. The probe is one-shot: the due
// date is consumed either way and a fail is never auto-rescheduled.
func ApplyCurveballResult(cov models.ConceptCoverage, passed bool, now time.Time) models.ConceptCoverage {
	cov.CurveballDueAt = nil
	if passed {
		passedAt := now
		cov.CurveballPassed = true
		cov.CurveballPassedAt = &passedAt
	}
	return cov
}

// AdvanceReviewState feeds a session performance signal into the FSRS memory
// model, producing a new next-review date. Only meaningful once both
// retrieval checks have passed; never consulted for mastery.
func AdvanceReviewState(cov models.ConceptCoverage, correct, total int, now time.Time, params fsrs.Parameters) models.ConceptCoverage {
	card := fsrs.NewCard()
	if cov.ReviewState != nil {
		card = *cov.ReviewState
	}

	info := params.Repeat(card, now)[ratingFor(correct, total)]
	cov.ReviewState = &info.Card
	return cov
}

// ratingFor maps a correct/total performance signal to an FSRS rating.
func ratingFor(correct, total int) fsrs.Rating {
	if total <= 0 {
		return fsrs.Again
	}
	accuracy := float64(correct) / float64(total)
	switch {
	case accuracy < 0.5:
		return fsrs.Again
	case accuracy < 0.7:
		return fsrs.Hard
	case accuracy < 0.9:
		return fsrs.Good
	default:
		return fsrs.Easy
	}
}

// Scheduler persists retrieval-check transitions and answers due-ness
// queries for session assembly.
type Scheduler struct {
	repo   repository.CoverageRepository
	cfg    Config
	params fsrs.Parameters
}

// New creates a Scheduler with default FSRS parameters.
func New(repo repository.CoverageRepository, cfg Config) *Scheduler {
	return &Scheduler{repo: repo, cfg: cfg, params: fsrs.DefaultParam()}
}

// ResolveFollowUp records a spaced follow-up outcome for a concept.
func (s *Scheduler) ResolveFollowUp(ctx context.Context, conceptID, bookID int64, passed bool) (*models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")

	cov, err := s.repo.Get(ctx, conceptID, bookID)
	if err != nil {
		return nil, err
	}
	if cov == nil {
		// A follow-up outcome for a concept with no coverage row means the
		// concept was removed mid-flight; skip rather than fail.
		log.Warn("follow-up outcome for unknown concept: concept_id=%d", conceptID)
		return nil, nil
	}

	updated := ApplyFollowUpResult(*cov, passed, time.Now(), s.cfg)
	log.Info("spaced follow-up %s: concept_id=%d", passFailWord(passed), conceptID)
	return s.repo.Upsert(ctx, &updated)
}

// ResolveCurveball records a curveball outcome for a concept.
func (s *Scheduler) ResolveCurveball(ctx context.Context, conceptID, bookID int64, passed bool) (*models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")

	cov, err := s.repo.Get(ctx, conceptID, bookID)
	if err != nil {
		return nil, err
	}
	if cov == nil {
		log.Warn("curveball outcome for unknown concept: concept_id=%d", conceptID)
		return nil, nil
	}

	updated := ApplyCurveballResult(*cov, passed, time.Now())
	log.Info("curveball %s: concept_id=%d", passFailWord(passed), conceptID)
	return s.repo.Upsert(ctx, &updated)
}

// AdvanceReview updates the FSRS review state from a review session's
// performance signal, for concepts that already satisfied both checks.
func (s *Scheduler) AdvanceReview(ctx context.Context, conceptID, bookID int64, correct, total int) (*models.ConceptCoverage, error) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")

	cov, err := s.repo.Get(ctx, conceptID, bookID)
	if err != nil {
		return nil, err
	}
	if cov == nil {
		return nil, nil
	}
	if cov.FollowUpPassedAt == nil || !cov.CurveballPassed {
		log.Debug("review state not advanced, checks incomplete: concept_id=%d", conceptID)
		return cov, nil
	}

	updated := AdvanceReviewState(*cov, correct, total, time.Now(), s.params)
	log.Debug("review state advanced: concept_id=%d, next due %s",
		conceptID, updated.ReviewState.Due.Format("2006-01-02"))
	return s.repo.Upsert(ctx, &updated)
}

// DueFollowUps lists concepts whose spaced follow-up check is due.
func (s *Scheduler) DueFollowUps(ctx context.Context, bookID int64) ([]models.ConceptCoverage, error) {
	return s.repo.DueFollowUps(ctx, bookID, time.Now())
}

// DueCurveballs lists concepts whose curveball probe is due.
func (s *Scheduler) DueCurveballs(ctx context.Context, bookID int64) ([]models.ConceptCoverage, error) {
	return s.repo.DueCurveballs(ctx, bookID, time.Now())
}

// ForceDue immediately due-dates every scheduled check for a book,
// bypassing the delay arithmetic. Debug/support hook.
func (s *Scheduler) ForceDue(ctx context.Context, bookID int64) (int64, error) {
	return s.repo.ForceDue(ctx, bookID, time.Now())
}

func passFailWord(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
