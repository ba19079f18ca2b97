package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sdcp-backend/internal/ingest"
)

// EventHub fans ingest completion events out to connected admin clients.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan ingest.Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan ingest.Event]struct{})}
}

// Subscribe returns a channel of events and a cancel func. Slow consumers
// drop events rather than block the hub.
func (h *EventHub) Subscribe() (<-chan ingest.Event, func()) {
	ch := make(chan ingest.Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}

func (h *EventHub) publish(ev ingest.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// StartEventRelay listens on the Redis ingest events channel and forwards
// into the hub. Runs until ctx is cancelled.
func StartEventRelay(ctx context.Context, rdb *redis.Client, hub *EventHub) {
	pubsub := rdb.Subscribe(ctx, ingest.EventsChannel)
	defer pubsub.Close()

	log.Printf("✅ Ingest event relay started, channel=%s", ingest.EventsChannel)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ Error receiving ingest event: %v", err)
			time.Sleep(time.Second)
			continue
		}
		var ev ingest.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("❌ Failed to unmarshal ingest event: %v", err)
			continue
		}
		hub.publish(ev)
	}
}
