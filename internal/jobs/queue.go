// Package jobs abstracts background-job enqueueing away from the API layer.
package jobs

// JobQueue enqueues background work.
type JobQueue interface {
	EnqueuePregeneration(conceptID int64) error
}
