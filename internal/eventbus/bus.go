// Package eventbus is a small in-process publish/subscribe hub.
//
// A Bus is created with New, initialised once with Start and torn down with
// Close. It replaces process-wide mutable state: components that need to
// react to submissions subscribe to a topic instead of sharing globals.
//
// Delivery never blocks the publisher. Each subscriber has a buffered
// channel; when it is full the oldest undelivered event is dropped. A
// subscriber that joins after an event was published receives the last
// event of the topic immediately.
package eventbus

import (
	"errors"
	"sync"
	"time"
)

// TopicReviewSubmitted is published after a review commit.
const TopicReviewSubmitted = "review.submitted"

const defaultBufferSize = 16

var (
	// ErrNotStarted is returned by Publish before Start.
	ErrNotStarted = errors.New("eventbus: not started")

	// ErrClosed is returned by operations after Close.
	ErrClosed = errors.New("eventbus: closed")
)

// Event is one published message.
type Event struct {
	Topic   string
	Seq     uint64
	At      time.Time
	Payload any
}

// Bus dispatches events to topic subscribers.
type Bus struct {
	mu      sync.Mutex
	started bool
	closed  bool
	seq     uint64
	nextID  int
	subs    map[string]map[int]chan Event
	last    map[string]Event
	dropped uint64

	bufferSize int
	now        func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber channel capacity (default 16).
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithClock sets the time source for Event.At.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		b.now = now
	}
}

// New returns an unstarted bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:       make(map[string]map[int]chan Event),
		last:       make(map[string]Event),
		bufferSize: defaultBufferSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start initialises the bus. Calling it again is a no-op.
func (b *Bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.started = true
	return nil
}

// Publish delivers payload to every subscriber of topic and records it as
// the topic's last event.
func (b *Bus) Publish(topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if !b.started {
		return ErrNotStarted
	}

	b.seq++
	ev := Event{Topic: topic, Seq: b.seq, At: b.now(), Payload: payload}
	b.last[topic] = ev
	for _, ch := range b.subs[topic] {
		b.deliver(ch, ev)
	}
	return nil
}

// deliver sends without blocking, evicting the oldest buffered event when
// ch is full. Callers hold b.mu, so no other sender races the eviction.
func (b *Bus) deliver(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
			b.dropped++
		default:
		}
	}
}

// Subscribe registers for topic. The returned cancel func unregisters and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(topic string) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}

	ch := make(chan Event, b.bufferSize)
	if ev, ok := b.last[topic]; ok {
		ch <- ev
	}

	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	b.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[topic][id]; ok {
				delete(b.subs[topic], id)
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}

// Last returns the most recent event published on topic.
func (b *Bus) Last(topic string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.last[topic]
	return ev, ok
}

// Dropped reports how many events were evicted from full subscriber buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes every subscriber channel. Later calls are no-ops.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subs, topic)
	}
	return nil
}
