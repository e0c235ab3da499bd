// Package session owns the practice-session lifecycle: singleton
// start-or-resume semantics, question-set assembly, and the completion
// pipeline that fans a session's answers out to coverage, the review queue,
// the retrieval scheduler, and the daily stats.
package session

import (
	"context"
	"sort"
	"time"

	"github.com/vilela/ideaflash/internal/bcal"
	"github.com/vilela/ideaflash/internal/coverage"
	apperrors "github.com/vilela/ideaflash/internal/errors"
	"github.com/vilela/ideaflash/internal/generator"
	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
	"github.com/vilela/ideaflash/internal/reviewqueue"
	"github.com/vilela/ideaflash/internal/scheduler"
)

// Config holds the lifecycle timing knobs.
type Config struct {
	// StaleAfter is how long a generating session may sit untouched before
	// a new start request discards it as abandoned.
	StaleAfter time.Duration

	// PollInterval and PollRetries bound how long a start request waits for
	// an in-flight generation before giving up and regenerating inline.
	PollInterval time.Duration
	PollRetries  int
}

// Answer is one scored answer submitted on completion. Everything else about
// the question is taken from the session's own snapshot, never from the
// client.
type Answer struct {
	QuestionIndex  int     `json:"question_index"`
	IsCorrect      bool    `json:"is_correct"`
	LatencySeconds float64 `json:"latency_seconds"`
	HintUsed       bool    `json:"hint_used"`
	AnswerChanges  int     `json:"answer_changes"`
}

// CompleteResult summarizes a finished session for the end-of-lesson screen.
type CompleteResult struct {
	Session           *models.Session  `json:"session"`
	BrainCal          int              `json:"brain_cal"`
	QuestionsAnswered int              `json:"questions_answered"`
	QuestionsCorrect  int              `json:"questions_correct"`
	NewlyMastered     []models.Concept `json:"newly_mastered,omitempty"`
}

// Service coordinates session state against the stores and the generator.
type Service struct {
	sessions    repository.SessionRepository
	responses   repository.ResponseRepository
	reviewItems repository.ReviewItemRepository
	concepts    repository.ConceptRepository
	covRepo     repository.CoverageRepository
	stats       repository.StatsRepository

	coverage *coverage.Store
	queue    *reviewqueue.Queue
	sched    *scheduler.Scheduler
	gen      *generator.Generator
	scorer   *bcal.Scorer

	cfg Config
}

// NewService wires the session service.
func NewService(
	sessions repository.SessionRepository,
	responses repository.ResponseRepository,
	reviewItems repository.ReviewItemRepository,
	concepts repository.ConceptRepository,
	covRepo repository.CoverageRepository,
	stats repository.StatsRepository,
	coverageStore *coverage.Store,
	queue *reviewqueue.Queue,
	sched *scheduler.Scheduler,
	gen *generator.Generator,
	scorer *bcal.Scorer,
	cfg Config,
) *Service {
	return &Service{
		sessions:    sessions,
		responses:   responses,
		reviewItems: reviewItems,
		concepts:    concepts,
		covRepo:     covRepo,
		stats:       stats,
		coverage:    coverageStore,
		queue:       queue,
		sched:       sched,
		gen:         gen,
		scorer:      scorer,
		cfg:         cfg,
	}
}

// StartConceptSession returns the authoritative session for a concept,
// resuming an existing one when possible and generating a fresh question set
// otherwise. At most one non-completed session per concept exists at a time.
func (s *Service) StartConceptSession(ctx context.Context, conceptID int64) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session")

	concept, err := s.concepts.GetConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, apperrors.NewNotFoundError("concept", conceptID)
	}

	existing, err := s.sessions.FindByKey(ctx, concept.BookID, models.SessionTypeConcept, conceptID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		resumed, err := s.tryResume(ctx, existing)
		if err != nil {
			return nil, err
		}
		if resumed != nil {
			log.Info("resumed concept session: id=%d, concept_id=%d, status=%s",
				resumed.ID, conceptID, resumed.Status)
			return resumed, nil
		}
	}

	log.Info("starting concept session: concept_id=%d", conceptID)
	return s.create(ctx, models.Session{
		ConceptID: conceptID,
		BookID:    concept.BookID,
		Type:      models.SessionTypeConcept,
		Status:    models.SessionGenerating,
	}, func(ctx context.Context) ([]models.Question, []int64, error) {
		return s.assembleConcept(ctx, *concept)
	})
}

// StartReviewSession returns the authoritative review session for a book,
// bundling the day's review items with any due retrieval checks.
func (s *Service) StartReviewSession(ctx context.Context, bookID int64) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session")

	book, err := s.concepts.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.NewNotFoundError("book", bookID)
	}

	existing, err := s.sessions.FindByKey(ctx, bookID, models.SessionTypeReview, 0)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		resumed, err := s.tryResume(ctx, existing)
		if err != nil {
			return nil, err
		}
		if resumed != nil {
			log.Info("resumed review session: id=%d, book_id=%d", resumed.ID, bookID)
			return resumed, nil
		}
	}

	questions, reviewIDs, err := s.assembleReview(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, apperrors.NewBadRequestError("no review items or retrieval checks are due")
	}

	log.Info("starting review session: book_id=%d, items=%d", bookID, len(questions))
	return s.create(ctx, models.Session{
		BookID: bookID,
		Type:   models.SessionTypeReview,
		Status: models.SessionGenerating,
	}, func(context.Context) ([]models.Question, []int64, error) {
		return questions, reviewIDs, nil
	})
}

// Pregenerate builds a ready session for a concept ahead of demand. A no-op
// when any non-completed session already exists for the concept.
func (s *Service) Pregenerate(ctx context.Context, conceptID int64) error {
	log := logger.FromContext(ctx).WithPrefix("session")

	concept, err := s.concepts.GetConcept(ctx, conceptID)
	if err != nil {
		return err
	}
	if concept == nil {
		return apperrors.NewNotFoundError("concept", conceptID)
	}

	existing, err := s.sessions.FindByKey(ctx, concept.BookID, models.SessionTypeConcept, conceptID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Debug("pregeneration skipped, session exists: concept_id=%d, status=%s",
			conceptID, existing.Status)
		return nil
	}

	id, err := s.sessions.Insert(ctx, models.Session{
		ConceptID: conceptID,
		BookID:    concept.BookID,
		Type:      models.SessionTypeConcept,
		Status:    models.SessionGenerating,
	})
	if err != nil {
		return err
	}

	questions, reviewIDs, err := s.assembleConcept(ctx, *concept)
	if err != nil {
		log.Error("pregeneration failed: concept_id=%d: %v", conceptID, err)
		return s.sessions.UpdateStatus(ctx, id, models.SessionError, err.Error())
	}
	if err := s.sessions.UpdateQuestions(ctx, id, questions, reviewIDs, models.ReviewFingerprint(reviewIDs)); err != nil {
		return err
	}
	log.Info("pregenerated session: id=%d, concept_id=%d, questions=%d", id, conceptID, len(questions))
	return s.sessions.UpdateStatus(ctx, id, models.SessionReady, "")
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, sessionID int64) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperrors.NewNotFoundError("session", sessionID)
	}
	return sess, nil
}

// Progress records the learner's position within a session. pause parks the
// session; otherwise it stays in progress.
func (s *Service) Progress(ctx context.Context, sessionID int64, currentIndex int, pause bool) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperrors.NewNotFoundError("session", sessionID)
	}
	if sess.Status.Terminal() {
		return nil, apperrors.NewConflictError("session is already completed")
	}
	if currentIndex < 0 || currentIndex > len(sess.Questions) {
		return nil, apperrors.NewValidationError("current_index", "outside the session's question set")
	}

	status := models.SessionInProgress
	if pause {
		status = models.SessionPaused
	}
	if err := s.sessions.UpdateProgress(ctx, sessionID, currentIndex, status); err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, sessionID)
}

// Complete scores a finished session and fans the answers out: response
// snapshots, coverage, the review queue, retrieval-check resolution, the
// memory model, and the day's aggregates. Returns the end-of-lesson summary
// including concepts that crossed the mastery gate in this session.
func (s *Service) Complete(ctx context.Context, sessionID int64, answers []Answer) (*CompleteResult, error) {
	log := logger.FromContext(ctx).WithPrefix("session")

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperrors.NewNotFoundError("session", sessionID)
	}
	if sess.Status.Terminal() {
		return nil, apperrors.NewConflictError("session is already completed")
	}

	now := time.Now()
	responses, err := s.snapshotResponses(ctx, sess, answers, now)
	if err != nil {
		return nil, err
	}

	byConcept := groupByConcept(responses)
	conceptIDs := sortedKeys(byConcept)

	preMastered, err := s.masterySnapshot(ctx, sess.BookID, conceptIDs)
	if err != nil {
		return nil, err
	}

	if err := s.responses.InsertBatch(ctx, responses); err != nil {
		return nil, err
	}

	for _, conceptID := range conceptIDs {
		if _, err := s.coverage.RecordResponses(ctx, conceptID, sess.BookID, byConcept[conceptID]); err != nil {
			return nil, err
		}
	}

	if err := s.queue.ResolveServed(ctx, responses); err != nil {
		return nil, err
	}
	if err := s.queue.AddMistakes(ctx, sess, responses); err != nil {
		return nil, err
	}

	for _, resp := range responses {
		if resp.ConceptID == 0 {
			continue
		}
		if resp.IsSpacedFollowUp {
			if _, err := s.sched.ResolveFollowUp(ctx, resp.ConceptID, sess.BookID, resp.IsCorrect); err != nil {
				return nil, err
			}
		}
		if resp.IsCurveball {
			if _, err := s.sched.ResolveCurveball(ctx, resp.ConceptID, sess.BookID, resp.IsCorrect); err != nil {
				return nil, err
			}
		}
	}

	for _, conceptID := range conceptIDs {
		correct, total := tally(byConcept[conceptID])
		if _, err := s.sched.AdvanceReview(ctx, conceptID, sess.BookID, correct, total); err != nil {
			return nil, err
		}
	}

	brainCal := s.scorer.LessonTotal(responses)
	correct, total := tally(responses)
	var attentionSeconds float64
	for _, resp := range responses {
		attentionSeconds += resp.LatencySeconds
	}
	if err := s.stats.AddToDay(ctx, now.Format("2006-01-02"), brainCal, total, correct, attentionSeconds/60); err != nil {
		return nil, err
	}

	if err := s.sessions.Complete(ctx, sessionID, now); err != nil {
		return nil, err
	}

	newlyMastered, err := s.newlyMastered(ctx, sess.BookID, conceptIDs, preMastered)
	if err != nil {
		return nil, err
	}

	completed, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log.Info("session completed: id=%d, brain_cal=%d, correct=%d/%d, mastered=%d",
		sessionID, brainCal, correct, total, len(newlyMastered))
	return &CompleteResult{
		Session:           completed,
		BrainCal:          brainCal,
		QuestionsAnswered: total,
		QuestionsCorrect:  correct,
		NewlyMastered:     newlyMastered,
	}, nil
}

// tryResume hands an existing session back if it is still servable. Returns
// nil (no error) when the session was discarded and a fresh one should be
// built.
func (s *Service) tryResume(ctx context.Context, sess *models.Session) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session")

	if sess.Status.Resumable() && len(sess.Questions) > 0 {
		intact, err := s.bundleIntact(ctx, sess)
		if err != nil {
			return nil, err
		}
		if !intact {
			log.Warn("review bundle drifted, rebuilding session: id=%d", sess.ID)
			return nil, s.sessions.Delete(ctx, sess.ID)
		}
		if sess.Status != models.SessionInProgress {
			if err := s.sessions.UpdateProgress(ctx, sess.ID, sess.CurrentIndex, models.SessionInProgress); err != nil {
				return nil, err
			}
			sess.Status = models.SessionInProgress
		}
		return sess, nil
	}

	if sess.Status == models.SessionGenerating && time.Since(sess.UpdatedAt) <= s.cfg.StaleAfter {
		ready, err := s.pollReady(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		if ready != nil {
			return s.tryResume(ctx, ready)
		}
	}

	// Stale generation, an errored session, or a resumable row with no
	// question set: discard and rebuild.
	log.Warn("discarding unservable session: id=%d, status=%s", sess.ID, sess.Status)
	return nil, s.sessions.Delete(ctx, sess.ID)
}

// pollReady waits a bounded time for an in-flight generation to finish.
func (s *Service) pollReady(ctx context.Context, sessionID int64) (*models.Session, error) {
	for attempt := 0; attempt < s.cfg.PollRetries; attempt++ {
		select {
		case <-time.After(s.cfg.PollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		sess, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, nil
		}
		if sess.Status != models.SessionGenerating {
			return sess, nil
		}
	}
	return nil, nil
}

// bundleIntact verifies every review item a session references still exists
// and is still open. Items resolved elsewhere make the bundle stale.
func (s *Service) bundleIntact(ctx context.Context, sess *models.Session) (bool, error) {
	for _, id := range sess.ReviewItemIDs {
		item, err := s.reviewItems.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if item == nil || item.IsCompleted {
			return false, nil
		}
	}
	return true, nil
}

// create inserts a generating session, runs the assembler, and promotes the
// session to in-progress. Assembly errors are recorded on the row.
func (s *Service) create(ctx context.Context, sess models.Session, assemble func(context.Context) ([]models.Question, []int64, error)) (*models.Session, error) {
	id, err := s.sessions.Insert(ctx, sess)
	if err != nil {
		return nil, err
	}

	questions, reviewIDs, err := assemble(ctx)
	if err != nil {
		_ = s.sessions.UpdateStatus(ctx, id, models.SessionError, err.Error())
		return nil, err
	}
	if err := s.sessions.UpdateQuestions(ctx, id, questions, reviewIDs, models.ReviewFingerprint(reviewIDs)); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateProgress(ctx, id, 0, models.SessionInProgress); err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, id)
}

// snapshotResponses turns submitted answers into write-once response rows.
// Question identity comes from the session's own snapshot; the concept of a
// review question comes from its backlog item.
func (s *Service) snapshotResponses(ctx context.Context, sess *models.Session, answers []Answer, now time.Time) ([]models.SessionResponse, error) {
	itemConcept := make(map[int64]int64, len(sess.ReviewItemIDs))
	for _, id := range sess.ReviewItemIDs {
		item, err := s.reviewItems.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			itemConcept[id] = item.ConceptID
		}
	}

	responses := make([]models.SessionResponse, 0, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(sess.Questions) {
			return nil, apperrors.NewValidationError("question_index", "outside the session's question set")
		}
		q := sess.Questions[a.QuestionIndex]

		resp := models.SessionResponse{
			SessionID:        sess.ID,
			QuestionIndex:    a.QuestionIndex,
			ConceptID:        sess.ConceptID,
			BookID:           sess.BookID,
			Category:         q.Category,
			QuestionType:     q.Type,
			Difficulty:       q.Difficulty,
			IsCorrect:        a.IsCorrect,
			LatencySeconds:   a.LatencySeconds,
			HintUsed:         a.HintUsed,
			AnswerChanges:    a.AnswerChanges,
			ReviewItemID:     q.ReviewItemID,
			IsCurveball:      q.IsCurveball,
			IsSpacedFollowUp: q.IsSpacedFollowUp,
			AnsweredAt:       now,
		}
		if q.ReviewItemID != 0 {
			resp.ConceptID = itemConcept[q.ReviewItemID]
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *Service) masterySnapshot(ctx context.Context, bookID int64, conceptIDs []int64) (map[int64]bool, error) {
	pre := make(map[int64]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		cov, err := s.covRepo.Get(ctx, id, bookID)
		if err != nil {
			return nil, err
		}
		pre[id] = cov != nil && cov.Mastered()
	}
	return pre, nil
}

// newlyMastered lists concepts that crossed the mastery gate during this
// completion, in concept-ID order for stable celebration rendering.
func (s *Service) newlyMastered(ctx context.Context, bookID int64, conceptIDs []int64, pre map[int64]bool) ([]models.Concept, error) {
	var out []models.Concept
	for _, id := range conceptIDs {
		if pre[id] {
			continue
		}
		cov, err := s.covRepo.Get(ctx, id, bookID)
		if err != nil {
			return nil, err
		}
		if cov == nil || !cov.Mastered() {
			continue
		}
		concept, err := s.concepts.GetConcept(ctx, id)
		if err != nil {
			return nil, err
		}
		if concept != nil {
			out = append(out, *concept)
		}
	}
	return out, nil
}

func groupByConcept(responses []models.SessionResponse) map[int64][]models.SessionResponse {
	out := make(map[int64][]models.SessionResponse)
	for _, resp := range responses {
		if resp.ConceptID == 0 {
			continue
		}
		out[resp.ConceptID] = append(out[resp.ConceptID], resp)
	}
	return out
}

func sortedKeys(m map[int64][]models.SessionResponse) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func tally(responses []models.SessionResponse) (correct, total int) {
	for _, resp := range responses {
		total++
		if resp.IsCorrect {
			correct++
		}
	}
	return correct, total
}
