package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/vilela/ideaflash/internal/errors"
	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/session"
)

func (s *Server) handleStartConceptSession(w http.ResponseWriter, r *http.Request) {
	conceptID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	sess, err := s.sessions.StartConceptSession(r.Context(), conceptID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (s *Server) handleStartReviewSession(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	sess, err := s.sessions.StartReviewSession(r.Context(), bookID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (s *Server) handleSessionProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req struct {
		CurrentIndex int  `json:"current_index"`
		Pause        bool `json:"pause"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}

	sess, err := s.sessions.Progress(r.Context(), sessionID, req.CurrentIndex, req.Pause)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req struct {
		Answers []session.Answer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperrors.NewBadRequestError("invalid JSON body"))
		return
	}

	result, err := s.sessions.Complete(r.Context(), sessionID, req.Answers)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if result.Session.Type == models.SessionTypeConcept {
		s.pregenerateNext(r, result.Session.BookID, result.Session.ConceptID)
	}

	writeJSON(w, http.StatusOK, result)
}

// pregenerateNext warms the question set of the next unfinished concept so
// the learner can roll straight into it.
func (s *Server) pregenerateNext(r *http.Request, bookID, justFinished int64) {
	log := logger.FromContext(r.Context())

	concepts, err := s.concepts.ListConcepts(r.Context(), bookID)
	if err != nil {
		log.Warn("next-concept lookup failed: %v", err)
		return
	}
	progress, err := s.coverage.Progress(r.Context(), bookID, concepts)
	if err != nil {
		log.Warn("next-concept lookup failed: %v", err)
		return
	}

	for _, p := range progress {
		if p.ID == justFinished || p.Mastered || p.CoveragePercent >= 100 {
			continue
		}
		if err := s.jobs.EnqueuePregeneration(p.ID); err != nil {
			log.Warn("pregeneration not queued: %v", err)
		}
		return
	}
}
