package ingest

import "context"

// Submitter hands a job to the pipeline. The record's processing flag has
// already been persisted by the caller; submission only decides where the
// work runs.
type Submitter interface {
	Submit(ctx context.Context, job Job) error
}

// Inline runs the pipeline synchronously on the caller's goroutine. The
// request blocks for the full move + transform + record rewrite; it is the
// fallback when no queue is configured.
type Inline struct {
	Pipeline *Pipeline
}

func (s *Inline) Submit(ctx context.Context, job Job) error {
	s.Pipeline.Process(ctx, job)
	return nil
}
