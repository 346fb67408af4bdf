package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bus fans job progress out to any number of watchers.
type Bus interface {
	Publish(ctx context.Context, jobID string, e Event) error
	// Subscribe returns a channel of events for jobID, starting with the
	// most recent event if one was published. The returned func releases
	// the subscription.
	Subscribe(ctx context.Context, jobID string) (<-chan Event, func(), error)
	Close() error
}

// BusSink publishes to bus under jobID.
func BusSink(bus Bus, jobID string) Sink {
	return SinkFunc(func(e Event) error {
		return bus.Publish(context.Background(), jobID, e)
	})
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
}

type lastEvent struct {
	event Event
	at    time.Time
}

// MemoryBus is a single-process Bus. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type MemoryBus struct {
	mu        sync.RWMutex
	subs      map[string]map[string]*subscriber
	last      map[string]lastEvent
	buffer    int
	retention time.Duration
}

// NewMemoryBus creates a bus that remembers each job's last event for
// retention after it finishes.
func NewMemoryBus(buffer int, retention time.Duration) *MemoryBus {
	if buffer <= 0 {
		buffer = 32
	}
	if retention <= 0 {
		retention = time.Hour
	}
	return &MemoryBus{
		subs:      make(map[string]map[string]*subscriber),
		last:      make(map[string]lastEvent),
		buffer:    buffer,
		retention: retention,
	}
}

// Publish delivers e to every subscriber of jobID.
func (b *MemoryBus) Publish(_ context.Context, jobID string, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := time.Now()
	b.last[jobID] = lastEvent{event: e, at: ts}
	b.prune(ts)

	for _, sub := range b.subs[jobID] {
		select {
		case sub.ch <- e:
		default:
		}
	}
	return nil
}

// prune drops finished jobs older than the retention window.
func (b *MemoryBus) prune(ts time.Time) {
	for id, le := range b.last {
		if le.event.Terminal() && ts.Sub(le.at) > b.retention {
			delete(b.last, id)
		}
	}
}

// Subscribe registers a watcher for jobID.
func (b *MemoryBus) Subscribe(ctx context.Context, jobID string) (<-chan Event, func(), error) {
	sub := &subscriber{
		ch:   make(chan Event, b.buffer),
		done: make(chan struct{}),
	}
	id := uuid.New().String()

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[string]*subscriber)
	}
	b.subs[jobID][id] = sub
	if le, ok := b.last[jobID]; ok {
		sub.ch <- le.event
	}
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[jobID], id)
			if len(b.subs[jobID]) == 0 {
				delete(b.subs, jobID)
			}
			close(sub.ch)
			b.mu.Unlock()
			close(sub.done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-sub.done:
		}
	}()

	return sub.ch, release, nil
}

// Last returns the most recent event for jobID.
func (b *MemoryBus) Last(jobID string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	le, ok := b.last[jobID]
	return le.event, ok
}

// Subscribers reports the number of watchers for jobID.
func (b *MemoryBus) Subscribers(jobID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[jobID])
}

// Close is a no-op.
func (b *MemoryBus) Close() error { return nil }
