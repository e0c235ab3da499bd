package jobs

import (
	"github.com/vilela/ideaflash/internal/worker"
)

// WorkerQueue implements JobQueue on top of a worker pool.
type WorkerQueue struct {
	pool     *worker.Pool
	sessions worker.SessionPregenerator
}

// NewWorkerQueue creates a WorkerQueue.
func NewWorkerQueue(pool *worker.Pool, sessions worker.SessionPregenerator) JobQueue {
	return &WorkerQueue{pool: pool, sessions: sessions}
}

func (q *WorkerQueue) EnqueuePregeneration(conceptID int64) error {
	return q.pool.Submit(&worker.PregenerateJob{
		Sessions:  q.sessions,
		ConceptID: conceptID,
	})
}
