package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilela/ideaflash/internal/bcal"
	"github.com/vilela/ideaflash/internal/coverage"
	"github.com/vilela/ideaflash/internal/db"
	"github.com/vilela/ideaflash/internal/generator"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
	"github.com/vilela/ideaflash/internal/repository/sqlite"
	"github.com/vilela/ideaflash/internal/reviewqueue"
	"github.com/vilela/ideaflash/internal/scheduler"
	"github.com/vilela/ideaflash/internal/session"
	"github.com/vilela/ideaflash/internal/testutil"
)

type env struct {
	db          *db.DB
	svc         *session.Service
	concepts    repository.ConceptRepository
	covRepo     repository.CoverageRepository
	reviewItems repository.ReviewItemRepository
	sessions    repository.SessionRepository
	stats       repository.StatsRepository
	queue       *reviewqueue.Queue

	bookID    int64
	conceptID int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	concepts := sqlite.NewConceptRepository(database.DB)
	covRepo := sqlite.NewCoverageRepository(database.DB)
	items := sqlite.NewReviewItemRepository(database.DB)
	sessions := sqlite.NewSessionRepository(database.DB)
	responses := sqlite.NewResponseRepository(database.DB)
	stats := sqlite.NewStatsRepository(database.DB)

	queue := reviewqueue.New(items)
	svc := session.NewService(
		sessions, responses, items, concepts, covRepo, stats,
		coverage.NewStore(covRepo, 2),
		queue,
		scheduler.New(covRepo, scheduler.Config{RetryDelayDays: 1, CurveballAfterPassDays: 7}),
		generator.New(generator.NewMockClient(), 1),
		bcal.NewScorer(bcal.DefaultConfig()),
		session.Config{
			StaleAfter:   5 * time.Minute,
			PollInterval: time.Millisecond,
			PollRetries:  2,
		},
	)

	bookID, err := concepts.CreateBook(ctx, models.Book{Title: "The Practicing Mind", Author: "Thomas Sterner"})
	require.NoError(t, err)
	conceptID, err := concepts.CreateConcept(ctx, models.Concept{
		BookID: bookID,
		Title:  "Process over product",
	})
	require.NoError(t, err)

	return &env{
		db:          database,
		svc:         svc,
		concepts:    concepts,
		covRepo:     covRepo,
		reviewItems: items,
		sessions:    sessions,
		stats:       stats,
		queue:       queue,
		bookID:      bookID,
		conceptID:   conceptID,
	}
}

func allCorrect(sess *models.Session) []session.Answer {
	answers := make([]session.Answer, len(sess.Questions))
	for i := range sess.Questions {
		answers[i] = session.Answer{QuestionIndex: i, IsCorrect: true, LatencySeconds: 10}
	}
	return answers
}

func (e *env) seedFullCoverage(t *testing.T, mutate func(cov *models.ConceptCoverage)) {
	t.Helper()
	cov := &models.ConceptCoverage{
		ConceptID:             e.conceptID,
		BookID:                e.bookID,
		CoveredCategories:     models.NewCategorySet(models.AllCategories()...),
		TotalQuestionsSeen:    10,
		TotalQuestionsCorrect: 9,
		CurrentAccuracy:       0.9,
		FollowUpCategory:      models.CategoryApply,
		FollowUpType:          models.TypeMultipleChoice,
		FollowUpDifficulty:    models.DifficultyMedium,
	}
	mutate(cov)
	_, err := e.covRepo.Upsert(context.Background(), cov)
	require.NoError(t, err)
}

func TestStartConceptSessionBuildsOrderedSet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sess, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, models.SessionInProgress, sess.Status)
	assert.Equal(t, 0, sess.CurrentIndex)
	require.Len(t, sess.Questions, models.CategoryCount)

	prev := 0
	for i, q := range sess.Questions {
		rank := models.DifficultyRank(q.Difficulty)
		assert.GreaterOrEqual(t, rank, prev, "question %d breaks the easy-to-hard order", i)
		prev = rank
	}

	last := sess.Questions[len(sess.Questions)-1]
	assert.True(t, last.CriticalApplication, "the critical-application question closes the set")
	assert.Equal(t, models.TypeOpenEnded, last.Type)
}

func TestStartConceptSessionIsSingleton(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)
	second, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "a second start must resume, not duplicate")
}

func TestStartConceptSessionUnknownConcept(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.StartConceptSession(context.Background(), 999)
	assert.Error(t, err)
}

func TestResumePreservesProgress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sess, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)

	paused, err := e.svc.Progress(ctx, sess.ID, 3, true)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaused, paused.Status)
	assert.Equal(t, 3, paused.CurrentIndex)

	resumed, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, resumed.ID)
	assert.Equal(t, models.SessionInProgress, resumed.Status)
	assert.Equal(t, 3, resumed.CurrentIndex)
}

func TestStaleGeneratingSessionIsRebuilt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	stuck, err := e.sessions.Insert(ctx, models.Session{
		ConceptID: e.conceptID,
		BookID:    e.bookID,
		Type:      models.SessionTypeConcept,
		Status:    models.SessionGenerating,
	})
	require.NoError(t, err)
	_, err = e.db.ExecContext(ctx, `UPDATE sessions SET updated_at = datetime('now', '-1 hour') WHERE id = ?`, stuck)
	require.NoError(t, err)

	sess, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)
	assert.NotEqual(t, stuck, sess.ID, "the abandoned generation must be discarded")
	assert.Equal(t, models.SessionInProgress, sess.Status)
	assert.NotEmpty(t, sess.Questions)

	gone, err := e.sessions.Get(ctx, stuck)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCompleteAllCorrectReachesFullCoverage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sess, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)

	result, err := e.svc.Complete(ctx, sess.ID, allCorrect(sess))
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, result.Session.Status)
	assert.Equal(t, models.CategoryCount, result.QuestionsAnswered)
	assert.Equal(t, models.CategoryCount, result.QuestionsCorrect)
	assert.GreaterOrEqual(t, result.BrainCal, 60)
	assert.LessOrEqual(t, result.BrainCal, 500)
	assert.Empty(t, result.NewlyMastered, "coverage alone is not mastery")

	cov, err := e.covRepo.Get(ctx, e.conceptID, e.bookID)
	require.NoError(t, err)
	require.NotNil(t, cov)
	assert.True(t, cov.FullCoverage())
	assert.False(t, cov.Mastered())
	require.NotNil(t, cov.FollowUpDueAt, "full coverage schedules the spaced follow-up")
	assert.True(t, cov.FollowUpDueAt.After(time.Now().AddDate(0, 0, 1)))

	day, err := e.stats.GetDay(ctx, time.Now().Format("2006-01-02"))
	require.NoError(t, err)
	assert.Equal(t, result.BrainCal, day.BrainCal)
	assert.Equal(t, models.CategoryCount, day.QuestionsAnswered)

	_, err = e.svc.Complete(ctx, sess.ID, allCorrect(sess))
	assert.Error(t, err, "completion is terminal")
}

func TestCompleteMistakesFeedReviewQueue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sess, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)

	answers := allCorrect(sess)
	answers[0].IsCorrect = false
	answers[2].IsCorrect = false

	_, err = e.svc.Complete(ctx, sess.ID, answers)
	require.NoError(t, err)

	open, err := e.queue.CountOpen(ctx, e.bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, open, "each missed category queues one item")

	next, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)
	require.Len(t, next.Questions, models.CategoryCount+2, "the next lesson bundles the backlog")

	var reviewCount int
	for _, q := range next.Questions {
		if q.IsReview() {
			reviewCount++
		}
	}
	assert.Equal(t, 2, reviewCount)
	assert.Len(t, next.ReviewItemIDs, 2)
}

func TestReviewQueueDailyCapHolds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// A backlog far beyond the daily caps.
	for i := 0; i < 50; i++ {
		conceptID, err := e.concepts.CreateConcept(ctx, models.Concept{
			BookID: e.bookID,
			Title:  "filler concept",
		})
		require.NoError(t, err)
		_, err = e.reviewItems.Insert(ctx, models.ReviewItem{
			ConceptID:    conceptID,
			BookID:       e.bookID,
			QuestionText: "missed question",
			QuestionType: models.TypeMultipleChoice,
			Difficulty:   models.DifficultyMedium,
			Category:     models.CategoryApply,
			Options:      []string{"a1", "b2", "c3", "d4"},
		})
		require.NoError(t, err)
	}
	_, err := e.reviewItems.Insert(ctx, models.ReviewItem{
		ConceptID:    e.conceptID,
		BookID:       e.bookID,
		QuestionText: "missed open question",
		QuestionType: models.TypeOpenEnded,
		Difficulty:   models.DifficultyHard,
		Category:     models.CategoryHowWield,
	})
	require.NoError(t, err)

	sess, err := e.svc.StartReviewSession(ctx, e.bookID)
	require.NoError(t, err)

	var mcq, openEnded int
	for _, q := range sess.Questions {
		require.True(t, q.IsReview())
		if q.Type == models.TypeOpenEnded {
			openEnded++
		} else {
			mcq++
		}
	}
	assert.Equal(t, reviewqueue.MaxDailyMCQ, mcq)
	assert.Equal(t, reviewqueue.MaxDailyOpenEnded, openEnded)
}

func TestReviewSessionNothingDue(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.StartReviewSession(context.Background(), e.bookID)
	assert.Error(t, err, "an empty backlog has nothing to serve")
}

func TestFollowUpPassSchedulesCurveball(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	e.seedFullCoverage(t, func(cov *models.ConceptCoverage) {
		cov.FollowUpDueAt = &past
	})

	sess, err := e.svc.StartReviewSession(ctx, e.bookID)
	require.NoError(t, err)
	require.Len(t, sess.Questions, 1)

	q := sess.Questions[0]
	assert.True(t, q.IsSpacedFollowUp)
	assert.Equal(t, models.CategoryApply, q.Category, "the check is calibrated to the snapshot")
	assert.Equal(t, models.TypeMultipleChoice, q.Type)

	_, err = e.svc.Complete(ctx, sess.ID, []session.Answer{{QuestionIndex: 0, IsCorrect: true, LatencySeconds: 20}})
	require.NoError(t, err)

	cov, err := e.covRepo.Get(ctx, e.conceptID, e.bookID)
	require.NoError(t, err)
	assert.NotNil(t, cov.FollowUpPassedAt)
	assert.Nil(t, cov.FollowUpDueAt, "a passed check consumes its due date")
	require.NotNil(t, cov.CurveballDueAt, "a passed follow-up schedules the curveball")
	assert.True(t, cov.CurveballDueAt.After(time.Now().AddDate(0, 0, 6)))

	open, err := e.queue.CountOpen(ctx, e.bookID)
	require.NoError(t, err)
	assert.Zero(t, open, "the answered check leaves the backlog")
}

func TestFollowUpFailRetriesTomorrow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	e.seedFullCoverage(t, func(cov *models.ConceptCoverage) {
		cov.FollowUpDueAt = &past
	})

	sess, err := e.svc.StartReviewSession(ctx, e.bookID)
	require.NoError(t, err)
	require.Len(t, sess.Questions, 1)

	_, err = e.svc.Complete(ctx, sess.ID, []session.Answer{{QuestionIndex: 0, IsCorrect: false, LatencySeconds: 20}})
	require.NoError(t, err)

	cov, err := e.covRepo.Get(ctx, e.conceptID, e.bookID)
	require.NoError(t, err)
	assert.Nil(t, cov.FollowUpPassedAt)
	assert.Nil(t, cov.CurveballDueAt)
	require.NotNil(t, cov.FollowUpDueAt)
	assert.True(t, cov.FollowUpDueAt.After(time.Now()), "a failed check is pushed out, not dropped")
}

func TestFailedFollowUpWaitsForRetryDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	e.seedFullCoverage(t, func(cov *models.ConceptCoverage) {
		cov.FollowUpDueAt = &past
	})

	sess, err := e.svc.StartReviewSession(ctx, e.bookID)
	require.NoError(t, err)
	require.Len(t, sess.Questions, 1)

	_, err = e.svc.Complete(ctx, sess.ID, []session.Answer{{QuestionIndex: 0, IsCorrect: false, LatencySeconds: 20}})
	require.NoError(t, err)

	// The failed check's backlog item stays open for its retry day, but it
	// must only be served once the rescheduled due date arrives.
	open, err := e.queue.CountOpen(ctx, e.bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, open, "the failed check waits in the backlog")

	_, err = e.svc.StartReviewSession(ctx, e.bookID)
	assert.Error(t, err, "nothing is due until the retry day")

	lesson, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)
	require.Len(t, lesson.Questions, models.CategoryCount)
	for _, q := range lesson.Questions {
		assert.False(t, q.IsSpacedFollowUp, "the delayed check must not ride into a lesson")
	}
}

func TestCurveballPassCrossesMasteryGate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	e.seedFullCoverage(t, func(cov *models.ConceptCoverage) {
		cov.FollowUpPassedAt = &past
		cov.CurveballDueAt = &past
	})

	sess, err := e.svc.StartReviewSession(ctx, e.bookID)
	require.NoError(t, err)
	require.Len(t, sess.Questions, 1)
	assert.True(t, sess.Questions[0].IsCurveball)
	assert.Equal(t, models.TypeOpenEnded, sess.Questions[0].Type)

	result, err := e.svc.Complete(ctx, sess.ID, []session.Answer{{QuestionIndex: 0, IsCorrect: true, LatencySeconds: 45}})
	require.NoError(t, err)

	require.Len(t, result.NewlyMastered, 1)
	assert.Equal(t, e.conceptID, result.NewlyMastered[0].ID)

	cov, err := e.covRepo.Get(ctx, e.conceptID, e.bookID)
	require.NoError(t, err)
	assert.True(t, cov.Mastered())
	assert.NotNil(t, cov.ReviewState, "mastery hands the concept to the memory model")
}

func TestCurveballFailIsOneShot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	e.seedFullCoverage(t, func(cov *models.ConceptCoverage) {
		cov.FollowUpPassedAt = &past
		cov.CurveballDueAt = &past
	})

	sess, err := e.svc.StartReviewSession(ctx, e.bookID)
	require.NoError(t, err)
	require.Len(t, sess.Questions, 1)

	result, err := e.svc.Complete(ctx, sess.ID, []session.Answer{{QuestionIndex: 0, IsCorrect: false, LatencySeconds: 45}})
	require.NoError(t, err)
	assert.Empty(t, result.NewlyMastered)

	cov, err := e.covRepo.Get(ctx, e.conceptID, e.bookID)
	require.NoError(t, err)
	assert.False(t, cov.CurveballPassed)
	assert.Nil(t, cov.CurveballDueAt, "the probe is consumed either way")

	open, err := e.queue.CountOpen(ctx, e.bookID)
	require.NoError(t, err)
	assert.Zero(t, open, "a served curveball never returns to the backlog")

	_, err = e.svc.StartReviewSession(ctx, e.bookID)
	assert.Error(t, err, "nothing is due after the one-shot probe")
}

func TestPregenerateProducesReadySession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Pregenerate(ctx, e.conceptID))

	pre, err := e.sessions.FindByKey(ctx, e.bookID, models.SessionTypeConcept, e.conceptID)
	require.NoError(t, err)
	require.NotNil(t, pre)
	assert.Equal(t, models.SessionReady, pre.Status)
	assert.Len(t, pre.Questions, models.CategoryCount)

	// A second pregeneration is a no-op; a start adopts the ready session.
	require.NoError(t, e.svc.Pregenerate(ctx, e.conceptID))
	sess, err := e.svc.StartConceptSession(ctx, e.conceptID)
	require.NoError(t, err)
	assert.Equal(t, pre.ID, sess.ID)
	assert.Equal(t, models.SessionInProgress, sess.Status)
}
