package repository

import (
	"context"
	"time"

	"github.com/vilela/ideaflash/internal/models"
)

// ConceptRepository handles book and concept registry access
type ConceptRepository interface {
	CreateBook(ctx context.Context, book models.Book) (int64, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	CreateConcept(ctx context.Context, concept models.Concept) (int64, error)
	GetConcept(ctx context.Context, id int64) (*models.Concept, error)
	ListConcepts(ctx context.Context, bookID int64) ([]models.Concept, error)
}

// CoverageRepository handles concept-coverage rows. Get returns nil (no
// error) when no row exists yet; coverage rows are created lazily.
type CoverageRepository interface {
	Get(ctx context.Context, conceptID, bookID int64) (*models.ConceptCoverage, error)
	Upsert(ctx context.Context, cov *models.ConceptCoverage) (*models.ConceptCoverage, error)
	ListByBook(ctx context.Context, bookID int64) ([]models.ConceptCoverage, error)
	DueFollowUps(ctx context.Context, bookID int64, now time.Time) ([]models.ConceptCoverage, error)
	DueCurveballs(ctx context.Context, bookID int64, now time.Time) ([]models.ConceptCoverage, error)
	ForceDue(ctx context.Context, bookID int64, now time.Time) (int64, error)
}

// ReviewItemRepository handles the review-queue backlog
type ReviewItemRepository interface {
	Insert(ctx context.Context, item models.ReviewItem) (int64, error)
	Get(ctx context.Context, id int64) (*models.ReviewItem, error)
	OpenItems(ctx context.Context, filter models.ReviewItemFilter) ([]models.ReviewItem, error)
	HasOpenItem(ctx context.Context, conceptID int64, category models.Category) (bool, error)
	MarkCompleted(ctx context.Context, ids []int64, completedAt time.Time) error
	CountOpen(ctx context.Context, bookID int64) (int, error)
}

// SessionRepository handles practice-session rows
type SessionRepository interface {
	Insert(ctx context.Context, session models.Session) (int64, error)
	Get(ctx context.Context, id int64) (*models.Session, error)
	FindByKey(ctx context.Context, bookID int64, sessionType models.SessionType, conceptID int64) (*models.Session, error)
	UpdateStatus(ctx context.Context, id int64, status models.SessionStatus, errorMessage string) error
	UpdateQuestions(ctx context.Context, id int64, questions []models.Question, reviewItemIDs []int64, fingerprint string) error
	UpdateProgress(ctx context.Context, id int64, currentIndex int, status models.SessionStatus) error
	Complete(ctx context.Context, id int64, completedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

// ResponseRepository handles write-once session response snapshots
type ResponseRepository interface {
	InsertBatch(ctx context.Context, responses []models.SessionResponse) error
	BySession(ctx context.Context, sessionID int64) ([]models.SessionResponse, error)
}

// StatsRepository handles daily aggregate rows
type StatsRepository interface {
	AddToDay(ctx context.Context, day string, brainCal, answered, correct int, attentionMinutes float64) error
	GetDay(ctx context.Context, day string) (*models.DailyStats, error)
}
