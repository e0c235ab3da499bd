package worker

import "context"

// SessionPregenerator builds a ready session for a concept ahead of demand.
// Declared here to keep the session package out of the worker's imports.
type SessionPregenerator interface {
	Pregenerate(ctx context.Context, conceptID int64) error
}

// PregenerateJob warms the next concept's question set in the background so
// the learner never waits on generation between lessons.
type PregenerateJob struct {
	Sessions  SessionPregenerator
	ConceptID int64
}

func (j *PregenerateJob) Name() string { return "pregenerate_session" }

func (j *PregenerateJob) Run(ctx context.Context) error {
	return j.Sessions.Pregenerate(ctx, j.ConceptID)
}
