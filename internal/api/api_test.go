package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilela/ideaflash/internal/api"
	"github.com/vilela/ideaflash/internal/bcal"
	"github.com/vilela/ideaflash/internal/coverage"
	"github.com/vilela/ideaflash/internal/generator"
	"github.com/vilela/ideaflash/internal/jobs"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository/sqlite"
	"github.com/vilela/ideaflash/internal/reviewqueue"
	"github.com/vilela/ideaflash/internal/scheduler"
	"github.com/vilela/ideaflash/internal/session"
	"github.com/vilela/ideaflash/internal/testutil"
	"github.com/vilela/ideaflash/internal/worker"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	database := testutil.NewTestDB(t)

	concepts := sqlite.NewConceptRepository(database.DB)
	covRepo := sqlite.NewCoverageRepository(database.DB)
	items := sqlite.NewReviewItemRepository(database.DB)
	sessions := sqlite.NewSessionRepository(database.DB)
	responses := sqlite.NewResponseRepository(database.DB)
	stats := sqlite.NewStatsRepository(database.DB)

	store := coverage.NewStore(covRepo, 2)
	queue := reviewqueue.New(items)
	sched := scheduler.New(covRepo, scheduler.Config{RetryDelayDays: 1, CurveballAfterPassDays: 7})
	svc := session.NewService(
		sessions, responses, items, concepts, covRepo, stats,
		store, queue, sched,
		generator.New(generator.NewMockClient(), 1),
		bcal.NewScorer(bcal.DefaultConfig()),
		session.Config{StaleAfter: 5 * time.Minute, PollInterval: time.Millisecond, PollRetries: 1},
	)

	pool := worker.NewPool(1, 4)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	server := api.NewServer(concepts, stats, store, queue, sched, svc, jobs.NewWorkerQueue(pool, svc))
	return server.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestBookAndConceptFlow(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/books", map[string]string{"title": "Deep Work", "author": "Cal Newport"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &created)
	require.NotZero(t, created.ID)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/books/%d/concepts", created.ID),
		map[string]string{"title": "Attention residue"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/books/%d/concepts", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Concepts []models.ConceptProgress `json:"concepts"`
	}
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Concepts, 1)
	assert.Zero(t, listed.Concepts[0].CoveragePercent)
	assert.False(t, listed.Concepts[0].Mastered)
}

func TestCreateBookValidation(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/books", map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/books", map[string]string{"title": "Atomic Habits"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var book struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &book)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/books/%d/concepts", book.ID),
		map[string]string{"title": "Habit stacking"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var concept struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &concept)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/concepts/%d/session", concept.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var started struct {
		Session models.Session `json:"session"`
	}
	decodeBody(t, rec, &started)
	require.Len(t, started.Session.Questions, models.CategoryCount)
	assert.Equal(t, models.SessionInProgress, started.Session.Status)

	answers := make([]session.Answer, len(started.Session.Questions))
	for i := range answers {
		answers[i] = session.Answer{QuestionIndex: i, IsCorrect: true, LatencySeconds: 12}
	}
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/sessions/%d/complete", started.Session.ID),
		map[string]any{"answers": answers})
	require.Equal(t, http.StatusOK, rec.Code)
	var result session.CompleteResult
	decodeBody(t, rec, &result)
	assert.Equal(t, models.CategoryCount, result.QuestionsAnswered)
	assert.GreaterOrEqual(t, result.BrainCal, 60)

	// Completion is terminal over HTTP too.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/sessions/%d/complete", started.Session.ID),
		map[string]any{"answers": answers})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/stats/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Stats models.DailyStats `json:"stats"`
	}
	decodeBody(t, rec, &stats)
	assert.Equal(t, models.CategoryCount, stats.Stats.QuestionsAnswered)
}

func TestReviewCountAndForceDue(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/books", map[string]string{"title": "Thinking in Systems"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var book struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &book)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/books/%d/review-count", book.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var counts struct {
		OpenItems     int `json:"open_items"`
		DueFollowUps  int `json:"due_follow_ups"`
		DueCurveballs int `json:"due_curveballs"`
	}
	decodeBody(t, rec, &counts)
	assert.Zero(t, counts.OpenItems)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/books/%d/force-due", book.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/sessions/424242", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestDailyStatsRejectsBadDay(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/stats/daily?day=not-a-day", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
