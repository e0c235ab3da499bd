package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/vilela/ideaflash/internal/errors"
	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.concepts.ListBooks(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		handleError(w, r, apperrors.NewValidationError("title", "cannot be empty"))
		return
	}

	id, err := s.concepts.CreateBook(r.Context(), models.Book{
		Title:  strings.TrimSpace(req.Title),
		Author: strings.TrimSpace(req.Author),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// handleListConcepts lists a book's concepts joined with their coverage and
// mastery state.
func (s *Server) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	book, err := s.concepts.GetBook(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if book == nil {
		handleError(w, r, apperrors.NewNotFoundError("book", bookID))
		return
	}

	concepts, err := s.concepts.ListConcepts(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	progress, err := s.coverage.Progress(r.Context(), bookID, concepts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"book": book, "concepts": progress})
}

func (s *Server) handleCreateConcept(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	book, err := s.concepts.GetBook(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if book == nil {
		handleError(w, r, apperrors.NewNotFoundError("book", bookID))
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		handleError(w, r, apperrors.NewValidationError("title", "cannot be empty"))
		return
	}

	id, err := s.concepts.CreateConcept(r.Context(), models.Concept{
		BookID:      bookID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	// Warm the question set so the first lesson starts instantly.
	if err := s.jobs.EnqueuePregeneration(id); err != nil {
		logger.FromContext(r.Context()).Warn("pregeneration not queued: %v", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// handleReviewCount reports the open backlog size and due retrieval checks
// for a book, for badge rendering.
func (s *Server) handleReviewCount(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	open, err := s.queue.CountOpen(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	followUps, err := s.sched.DueFollowUps(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	curveballs, err := s.sched.DueCurveballs(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"open_items":     open,
		"due_follow_ups": len(followUps),
		"due_curveballs": len(curveballs),
	})
}

// handleForceDue immediately due-dates every scheduled check for a book.
// Debug/support hook for exercising the review flow without waiting out the
// delays.
func (s *Server) handleForceDue(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	affected, err := s.sched.ForceDue(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"affected": affected})
}
