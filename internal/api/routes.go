package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", s.handleListBooks)
		r.Post("/", s.handleCreateBook)
		r.Get("/{id}/concepts", s.handleListConcepts)
		r.Post("/{id}/concepts", s.handleCreateConcept)
		r.Get("/{id}/review-count", s.handleReviewCount)
		r.Post("/{id}/review-session", s.handleStartReviewSession)
		r.Post("/{id}/force-due", s.handleForceDue)
	})

	r.Post("/api/concepts/{id}/session", s.handleStartConceptSession)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/{id}", s.handleGetSession)
		r.Post("/{id}/progress", s.handleSessionProgress)
		r.Post("/{id}/complete", s.handleCompleteSession)
	})

	r.Get("/api/stats/daily", s.handleDailyStats)

	return r
}
