package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/thumbnails/observe"
)

// Handler receives delivered events.
type Handler func(ctx context.Context, e Event)

// Publisher publishes events.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Publish may block until the event is queued and must honor cancellation.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// BusConfig configures a Bus.
type BusConfig struct {
	// QueueSize is the per-subscription buffer. Default: 64
	QueueSize int

	// Logger receives handler panics. Default: no-op.
	Logger observe.Logger
}

// Bus is an in-process Publisher with topic subscriptions.
type Bus struct {
	config BusConfig

	mu     sync.RWMutex
	subs   map[string][]*Subscription
	closed bool
	nextID atomic.Uint64
}

// NewBus creates a bus.
func NewBus(config BusConfig) *Bus {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	return &Bus{
		config: config,
		subs:   make(map[string][]*Subscription),
	}
}

// Subscription is a registered handler with its own delivery goroutine.
type Subscription struct {
	id      uint64
	topic   string
	filter  Filter
	handler Handler
	bus     *Bus
	queue   chan Event
	done    chan struct{}
	once    sync.Once

	delivered atomic.Int64
}

// Subscribe registers handler for events on topic accepted by filter.
// A nil filter accepts everything.
func (b *Bus) Subscribe(topic string, filter Filter, handler Handler) (*Subscription, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	if filter == nil {
		filter = MatchAll
	}

	sub := &Subscription{
		id:      b.nextID.Add(1),
		topic:   topic,
		filter:  filter,
		handler: handler,
		bus:     b,
		queue:   make(chan Event, b.config.QueueSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	go sub.run()
	return sub, nil
}

// Publish queues e for every matching subscription on its topic.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e.Topic == "" {
		return ErrEmptyTopic
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	for _, sub := range b.subs[e.Topic] {
		if !sub.filter(e) {
			continue
		}
		select {
		case sub.queue <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting events, drains every queue and waits for delivery.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*Subscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.subs = make(map[string][]*Subscription)
	b.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
	return nil
}

// SubscriptionCount returns the number of subscriptions on topic.
func (b *Bus) SubscriptionCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Unsubscribe removes the subscription and waits for its queue to drain.
func (s *Subscription) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	subs := b.subs[s.topic]
	for i, other := range subs {
		if other.id == s.id {
			b.subs[s.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	s.stop()
}

// Delivered returns how many events the handler has processed.
func (s *Subscription) Delivered() int64 {
	return s.delivered.Load()
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// stop must only be called once the subscription is unreachable from Publish.
func (s *Subscription) stop() {
	s.once.Do(func() { close(s.queue) })
	<-s.done
}

func (s *Subscription) run() {
	defer close(s.done)
	for e := range s.queue {
		s.deliver(e)
	}
}

func (s *Subscription) deliver(e Event) {
	defer func() {
		if r := recover(); r != nil {
			s.bus.config.Logger.Error(context.Background(), "event handler panicked",
				observe.Field{Key: "topic", Value: e.Topic},
				observe.Field{Key: "panic", Value: fmt.Sprint(r)},
			)
		}
		s.delivered.Add(1)
	}()
	s.handler(context.Background(), e)
}

// Ensure Bus implements Publisher
var _ Publisher = (*Bus)(nil)
