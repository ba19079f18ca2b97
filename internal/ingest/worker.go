package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Worker consumes ingest jobs from the Redis queue and runs the pipeline
// off the request path. One worker is enough for this workload; jobs are
// processed in submission order.
type Worker struct {
	RDB      *redis.Client
	Pipeline *Pipeline
}

func NewWorker(rdb *redis.Client, p *Pipeline) *Worker {
	return &Worker{RDB: rdb, Pipeline: p}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("✅ Ingest worker started, queue=%s", IngestQueue)
	for {
		res, err := w.RDB.BRPop(ctx, 5*time.Second, IngestQueue).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Printf("Ingest worker stopping: %v", ctx.Err())
				return
			}
			if !errors.Is(err, redis.Nil) {
				log.Printf("❌ Ingest queue pop failed: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		// BRPop returns [key, value]
		if len(res) != 2 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Printf("❌ Dropping malformed ingest job: %v", err)
			continue
		}

		w.Pipeline.Process(ctx, job)

		ev := Event{ExampleID: job.ExampleID, Status: "processed", ProcessedAt: time.Now()}
		if ex, err := w.Pipeline.Examples.Get(ctx, job.ExampleID); err == nil && ex.Failed() {
			ev.Status = "failed"
			ev.Error = ex.ProcessingError
		}
		PublishEvent(ctx, w.RDB, ev)
	}
}
