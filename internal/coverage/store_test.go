package coverage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilela/ideaflash/internal/coverage"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
	"github.com/vilela/ideaflash/internal/repository/sqlite"
	"github.com/vilela/ideaflash/internal/testutil"
)

func newStore(t *testing.T) (*coverage.Store, repository.CoverageRepository, int64, int64) {
	t.Helper()
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	concepts := sqlite.NewConceptRepository(database.DB)
	bookID, err := concepts.CreateBook(ctx, models.Book{Title: "Range"})
	require.NoError(t, err)
	conceptID, err := concepts.CreateConcept(ctx, models.Concept{BookID: bookID, Title: "Sampling period"})
	require.NoError(t, err)

	repo := sqlite.NewCoverageRepository(database.DB)
	return coverage.NewStore(repo, 2), repo, conceptID, bookID
}

func resp(category models.Category, qtype models.QuestionType, difficulty models.Difficulty, correct bool) models.SessionResponse {
	return models.SessionResponse{
		Category:     category,
		QuestionType: qtype,
		Difficulty:   difficulty,
		IsCorrect:    correct,
	}
}

func TestRecordResponsesCreatesRowLazily(t *testing.T) {
	store, repo, conceptID, bookID := newStore(t)
	ctx := context.Background()

	before, err := repo.Get(ctx, conceptID, bookID)
	require.NoError(t, err)
	assert.Nil(t, before, "no row until the first response")

	cov, err := store.RecordResponses(ctx, conceptID, bookID, []models.SessionResponse{
		resp(models.CategoryRecall, models.TypeMultipleChoice, models.DifficultyEasy, true),
		resp(models.CategoryApply, models.TypeMultipleChoice, models.DifficultyMedium, false),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cov.TotalQuestionsSeen)
	assert.Equal(t, 1, cov.TotalQuestionsCorrect)
	assert.InDelta(t, 0.5, cov.CurrentAccuracy, 0.001)
	assert.True(t, cov.CoveredCategories.Has(models.CategoryRecall))
	assert.False(t, cov.CoveredCategories.Has(models.CategoryApply), "a wrong answer covers nothing")
}

func TestCategoriesOnlyGrow(t *testing.T) {
	store, _, conceptID, bookID := newStore(t)
	ctx := context.Background()

	_, err := store.RecordResponses(ctx, conceptID, bookID, []models.SessionResponse{
		resp(models.CategoryRecall, models.TypeMultipleChoice, models.DifficultyEasy, true),
	})
	require.NoError(t, err)

	// A later miss in the same category must not shrink coverage.
	cov, err := store.RecordResponses(ctx, conceptID, bookID, []models.SessionResponse{
		resp(models.CategoryRecall, models.TypeMultipleChoice, models.DifficultyEasy, false),
	})
	require.NoError(t, err)
	assert.True(t, cov.CoveredCategories.Has(models.CategoryRecall))
	assert.Equal(t, 2, cov.TotalQuestionsSeen)
}

func TestCalibrationSnapshotFirstWins(t *testing.T) {
	store, _, conceptID, bookID := newStore(t)
	ctx := context.Background()

	cov, err := store.RecordResponses(ctx, conceptID, bookID, []models.SessionResponse{
		resp(models.CategoryHowWield, models.TypeOpenEnded, models.DifficultyHard, true),
		resp(models.CategoryCritique, models.TypeMultipleChoice, models.DifficultyHard, true),
		resp(models.CategoryApply, models.TypeMultipleChoice, models.DifficultyMedium, true),
		resp(models.CategoryRecall, models.TypeMultipleChoice, models.DifficultyEasy, true),
	})
	require.NoError(t, err)

	// Hard MCQ outranks the open-ended and everything easier.
	assert.Equal(t, models.CategoryCritique, cov.FollowUpCategory)
	assert.Equal(t, models.TypeMultipleChoice, cov.FollowUpType)
	assert.Equal(t, models.DifficultyHard, cov.FollowUpDifficulty)

	cov, err = store.RecordResponses(ctx, conceptID, bookID, []models.SessionResponse{
		resp(models.CategoryReframe, models.TypeMultipleChoice, models.DifficultyHard, true),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryCritique, cov.FollowUpCategory, "later sessions never overwrite the snapshot")
}

func TestFullCoverageSchedulesFollowUpOnce(t *testing.T) {
	store, _, conceptID, bookID := newStore(t)
	ctx := context.Background()

	batch := make([]models.SessionResponse, 0, models.CategoryCount)
	for _, c := range models.AllCategories() {
		batch = append(batch, resp(c, models.TypeMultipleChoice, models.DifficultyMedium, true))
	}

	cov, err := store.RecordResponses(ctx, conceptID, bookID, batch)
	require.NoError(t, err)
	require.True(t, cov.FullCoverage())
	require.NotNil(t, cov.FollowUpDueAt)

	due := *cov.FollowUpDueAt
	assert.True(t, due.After(time.Now().AddDate(0, 0, 1)))

	cov, err = store.RecordResponses(ctx, conceptID, bookID, []models.SessionResponse{
		resp(models.CategoryRecall, models.TypeMultipleChoice, models.DifficultyEasy, true),
	})
	require.NoError(t, err)
	require.NotNil(t, cov.FollowUpDueAt)
	assert.WithinDuration(t, due, *cov.FollowUpDueAt, time.Second, "the follow-up date is set exactly once")
}

func TestProgressReportsZeroForUntouchedConcepts(t *testing.T) {
	store, _, conceptID, bookID := newStore(t)
	ctx := context.Background()

	concepts := []models.Concept{{ID: conceptID, BookID: bookID, Title: "Sampling period"}}
	progress, err := store.Progress(ctx, bookID, concepts)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Zero(t, progress[0].CoveragePercent)
	assert.False(t, progress[0].Mastered)

	_, err = store.RecordResponses(ctx, conceptID, bookID, []models.SessionResponse{
		resp(models.CategoryRecall, models.TypeMultipleChoice, models.DifficultyEasy, true),
		resp(models.CategoryApply, models.TypeMultipleChoice, models.DifficultyMedium, true),
	})
	require.NoError(t, err)

	progress, err = store.Progress(ctx, bookID, concepts)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, progress[0].CoveragePercent, 0.001)
}
