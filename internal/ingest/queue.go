package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// IngestQueue is the Redis list jobs wait on.
	IngestQueue = "media_ingest_queue"
	// EventsChannel carries completion events for the admin dashboard.
	EventsChannel = "media_ingest_events"
)

// Event is published after each pipeline run so admin clients can refresh
// without polling.
type Event struct {
	ExampleID   string    `json:"example_id"`
	Status      string    `json:"status"` // "processed" or "failed"
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Queue submits jobs to Redis for the background worker, making the
// Example's processing flag the only durable marker of in-flight work.
type Queue struct {
	RDB *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{RDB: rdb}
}

func (q *Queue) Submit(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal ingest job: %w", err)
	}
	if err := q.RDB.LPush(ctx, IngestQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue ingest job: %w", err)
	}
	log.Printf("✅ Enqueued ingest job: example=%s file=%s", job.ExampleID, job.OriginalFilename)
	return nil
}

// Len returns the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.RDB.LLen(ctx, IngestQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// PublishEvent is best-effort; a dropped event only delays the dashboard
// until its next poll.
func PublishEvent(ctx context.Context, rdb *redis.Client, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := rdb.Publish(ctx, EventsChannel, raw).Err(); err != nil {
		log.Printf("⚠️  Failed to publish ingest event for %s: %v", ev.ExampleID, err)
	}
}
