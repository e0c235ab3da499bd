// Package api exposes the engine over a JSON HTTP interface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/vilela/ideaflash/internal/coverage"
	"github.com/vilela/ideaflash/internal/jobs"
	"github.com/vilela/ideaflash/internal/repository"
	"github.com/vilela/ideaflash/internal/reviewqueue"
	"github.com/vilela/ideaflash/internal/scheduler"
	"github.com/vilela/ideaflash/internal/session"
)

// Server holds the handler dependencies.
type Server struct {
	concepts repository.ConceptRepository
	stats    repository.StatsRepository
	coverage *coverage.Store
	queue    *reviewqueue.Queue
	sched    *scheduler.Scheduler
	sessions *session.Service
	jobs     jobs.JobQueue
}

// NewServer wires the API server.
func NewServer(
	concepts repository.ConceptRepository,
	stats repository.StatsRepository,
	coverageStore *coverage.Store,
	queue *reviewqueue.Queue,
	sched *scheduler.Scheduler,
	sessions *session.Service,
	jobQueue jobs.JobQueue,
) *Server {
	return &Server{
		concepts: concepts,
		stats:    stats,
		coverage: coverageStore,
		queue:    queue,
		sched:    sched,
		sessions: sessions,
		jobs:     jobQueue,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
