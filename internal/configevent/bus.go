package configevent

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const defaultQueueSize = 256

// Bus delivers change events to per-component and wildcard subscribers.
//
// Publish enqueues onto a per-component ordered queue served by a single
// goroutine, so a component's events arrive in emission order. Handler
// failures are counted and logged but never propagate to the emitter or to
// sibling handlers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Subscription // componentID → subID → sub
	queues map[string]*componentQueue
	closed bool

	queueSize int
	logger    *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup

	published     atomic.Uint64
	delivered     atomic.Uint64
	dropped       atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	Dropped       uint64
	HandlerErrors uint64
	HandlerPanics uint64
	Subscribers   int
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the per-component queue capacity.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an event bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:      make(map[string]map[string]*Subscription),
		queues:    make(map[string]*componentQueue),
		queueSize: defaultQueueSize,
		logger:    zap.NewNop(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// componentQueue is one component's ordered delivery queue plus the stop
// signal that ends its serve goroutine when the component is removed.
type componentQueue struct {
	ch   chan ChangeEvent
	stop chan struct{}
}

// Subscription is one active handler registration.
type Subscription struct {
	id          string
	componentID string
	handler     Handler
	cancelled   atomic.Bool
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// ComponentID returns the subscribed component id (or Wildcard).
func (s *Subscription) ComponentID() string { return s.componentID }

// active reports whether the subscription should still receive events.
func (s *Subscription) active() bool { return !s.cancelled.Load() }

// Subscribe registers a handler for one component's events, or for all
// events when componentID is Wildcard.
func (b *Bus) Subscribe(componentID string, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if componentID == "" {
		return nil, ErrInvalidComponentID
	}

	sub := &Subscription{
		id:          generateID(),
		componentID: componentID,
		handler:     handler,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	if b.subs[componentID] == nil {
		b.subs[componentID] = make(map[string]*Subscription)
	}
	b.subs[componentID][sub.id] = sub
	return sub, nil
}

// SubscribeFunc registers a function handler.
func (b *Bus) SubscribeFunc(componentID string, fn HandlerFunc) (*Subscription, error) {
	return b.Subscribe(componentID, fn)
}

// Unsubscribe removes a subscription. Safe to call repeatedly.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.cancelled.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.componentID]; ok {
		delete(set, sub.id)
		if len(set) == 0 {
			delete(b.subs, sub.componentID)
		}
	}
}

// Publish enqueues an event for asynchronous delivery. It never blocks:
// when the component's queue is full, the event is dropped and counted.
func (b *Bus) Publish(ev ChangeEvent) error {
	if ev.ComponentID == "" {
		return ErrInvalidComponentID
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	queue, ok := b.queues[ev.ComponentID]
	if !ok {
		queue = &componentQueue{
			ch:   make(chan ChangeEvent, b.queueSize),
			stop: make(chan struct{}),
		}
		b.queues[ev.ComponentID] = queue
		b.wg.Add(1)
		go b.serve(queue)
	}
	b.mu.Unlock()

	b.published.Add(1)

	select {
	case queue.ch <- ev:
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("event queue full, change event dropped",
			zap.String("componentId", ev.ComponentID),
			zap.String("section", string(ev.Section)))
		return ErrQueueFull
	}
}

// serve drains one component queue in order until the bus closes or the
// component is removed.
func (b *Bus) serve(queue *componentQueue) {
	defer b.wg.Done()
	for {
		select {
		case ev := <-queue.ch:
			b.deliver(ev)
		case <-queue.stop:
			return
		case <-b.done:
			for {
				select {
				case ev := <-queue.ch:
					b.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes all matching subscribers, isolating each one.
func (b *Bus) deliver(ev ChangeEvent) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, 4)
	for _, sub := range b.subs[ev.ComponentID] {
		targets = append(targets, sub)
	}
	for _, sub := range b.subs[Wildcard] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.active() {
			continue
		}
		b.invoke(sub, ev)
	}
}

func (b *Bus) invoke(sub *Subscription, ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			b.logger.Error("change event handler panicked",
				zap.String("subscription", sub.id),
				zap.String("componentId", ev.ComponentID),
				zap.Any("panic", r))
		}
	}()

	if err := sub.handler.HandleConfigChange(ev); err != nil {
		b.handlerErrors.Add(1)
		b.logger.Warn("change event handler failed",
			zap.String("subscription", sub.id),
			zap.String("componentId", ev.ComponentID),
			zap.Error(err))
		return
	}
	b.delivered.Add(1)
}

// RemoveComponent drops the queue and subscriptions for a removed
// component and stops its serve goroutine.
func (b *Bus) RemoveComponent(componentID string) {
	b.mu.Lock()
	delete(b.subs, componentID)
	queue := b.queues[componentID]
	delete(b.queues, componentID)
	b.mu.Unlock()
	if queue != nil {
		close(queue.stop)
	}
}

// Close shuts the bus down, draining queued events. Safe to call more than
// once.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}

// Stats returns a snapshot of bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	subscribers := 0
	for _, set := range b.subs {
		subscribers += len(set)
	}
	b.mu.RUnlock()

	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		HandlerErrors: b.handlerErrors.Load(),
		HandlerPanics: b.handlerPanics.Load(),
		Subscribers:   subscribers,
	}
}

// generateID returns a random subscription id.
func generateID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "sub-fallback"
	}
	return hex.EncodeToString(buf)
}
