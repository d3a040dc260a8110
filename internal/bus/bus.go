package bus

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

const inboxRetention = 24 * time.Hour

// Handler consumes one event. Handlers run on the dispatch goroutine and
// must hand long work off to their own loops to keep per-topic order.
type Handler func(ctx context.Context, evt Event)

// Bus is the cross-instance pub/sub fabric. Publishing fans out through
// Redis to every instance and is also delivered locally in the same call;
// consumers stay idempotent through the event inbox.
type Bus struct {
	rdb        *redis.Client
	inbox      repository.EventInboxRepository
	instanceID string

	mu       sync.RWMutex
	handlers map[string][]Handler

	ulidMu  sync.Mutex
	entropy *ulid.MonotonicEntropy

	pubsub *redis.PubSub
	done   chan struct{}
}

func New(rdb *redis.Client, inbox repository.EventInboxRepository, instanceID string) *Bus {
	return &Bus{
		rdb:        rdb,
		inbox:      inbox,
		instanceID: instanceID,
		handlers:   make(map[string][]Handler),
		entropy:    ulid.Monotonic(rand.Reader, 0),
		done:       make(chan struct{}),
	}
}

// Subscribe registers a handler for a topic. Call before Start.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Start opens the Redis subscription and spawns the dispatch loop plus
// the inbox retention sweep.
func (b *Bus) Start(ctx context.Context) error {
	b.pubsub = b.rdb.Subscribe(ctx, AllTopics()...)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("bus subscribe: %w", err)
	}
	go b.consumeLoop(ctx)
	go b.pruneLoop(ctx)
	log.Printf("Bus: subscribed to %d topics as %s", len(AllTopics()), b.instanceID)
	return nil
}

func (b *Bus) Stop() {
	close(b.done)
	if b.pubsub != nil {
		b.pubsub.Close()
	}
}

// Publish broadcasts an event and processes it locally. A Redis failure
// is a hard ErrBroadcastFailed before any local handler runs, so callers
// never end up half-committed.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	evt := Event{
		ID:        b.newEventID(),
		Type:      topic,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if err := b.rdb.Publish(ctx, topic, raw).Err(); err != nil {
		return Event{}, fmt.Errorf("%w: publish %s: %v", domain.ErrBroadcastFailed, topic, err)
	}
	// Self-delivery is mandatory: the publisher consumes its own event
	// here, and the Redis echo is dropped by the inbox.
	b.dispatch(ctx, evt)
	return evt, nil
}

func (b *Bus) consumeLoop(ctx context.Context) {
	ch := b.pubsub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Printf("Bus: dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			if evt.Type == "" {
				evt.Type = msg.Channel
			}
			b.dispatch(ctx, evt)
		}
	}
}

// dispatch runs the inbox dedupe and then the topic handlers, serially.
// Per-topic order from a single publisher is preserved because there is
// exactly one dispatch path per instance.
func (b *Bus) dispatch(ctx context.Context, evt Event) {
	inserted, err := b.inbox.Insert(ctx, b.instanceID, evt.ID, evt.Type)
	if err != nil {
		log.Printf("Bus: inbox insert failed for %s (%s): %v", evt.ID, evt.Type, err)
		return
	}
	if !inserted {
		return
	}
	b.mu.RLock()
	hs := b.handlers[evt.Type]
	b.mu.RUnlock()
	for _, h := range hs {
		h(ctx, evt)
	}
}

func (b *Bus) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-inboxRetention)
			if n, err := b.inbox.DeleteOlderThan(ctx, cutoff); err != nil {
				log.Printf("Bus: inbox prune failed: %v", err)
			} else if n > 0 {
				log.Printf("Bus: pruned %d inbox rows", n)
			}
		}
	}
}

func (b *Bus) newEventID() string {
	b.ulidMu.Lock()
	defer b.ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), b.entropy).String()
}
