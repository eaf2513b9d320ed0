package events

import (
	"sync"
	"time"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

// Well-known topics. Topics are opaque strings; these are the ones the
// engine emits itself. Graph mutations never travel over the bus.
const (
	TopicReportReceived = "ReportReceived"
	TopicEdgeCreated    = "edge:created"
	TopicAlertPublished = "AlertPublished"
)

// Handler processes one event payload. Handlers run on their own
// goroutine and must not assume any ordering across topics.
type Handler func(payload map[string]any)

type event struct {
	topic   string
	payload map[string]any
	at      time.Time
}

type registration struct {
	name    string
	handler Handler
}

// Bus is a process-wide topic-to-handler registry with fire-and-forget
// dispatch. Emit enqueues and returns; a dispatcher goroutine fans each
// event out to the topic's handlers, one goroutine per handler, with
// panic recovery. One bad handler never blocks the others or later
// events.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]registration
	eventCh  chan event
	stopCh   chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]registration),
		eventCh:  make(chan event, 100), // Buffer up to 100 events
		stopCh:   make(chan struct{}),
	}
}

// Start begins the bus dispatch loop
func (b *Bus) Start() {
	b.wg.Add(1)
	go b.run()
}

// Stop shuts the bus down. After Stop, Emit is a no-op. Events already
// enqueued are dropped; handlers already running finish on their own.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	close(b.stopCh)
	b.mu.Unlock()
	b.wg.Wait()
}

// Subscribe registers a handler under a subscriber name. Registration is
// idempotent on (topic, name): re-registering replaces the handler
// rather than adding a duplicate.
func (b *Bus) Subscribe(topic, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[topic]
	for i, r := range regs {
		if r.name == name {
			regs[i].handler = handler
			return
		}
	}
	b.handlers[topic] = append(regs, registration{name: name, handler: handler})
}

// Emit publishes an event to the bus. Fire-and-forget: it returns as
// soon as the event is enqueued. If the bus is stopped or the dispatch
// buffer is full, the event is dropped.
func (b *Bus) Emit(topic string, payload map[string]any) {
	b.mu.RLock()
	stopped := b.stopped
	b.mu.RUnlock()
	if stopped {
		return
	}

	metrics.BusEvents.WithLabelValues(topic).Inc()

	select {
	case b.eventCh <- event{topic: topic, payload: payload, at: time.Now()}:
	case <-b.stopCh:
	default:
		log.WithComponent("events").Warn().Str("topic", topic).Msg("event bus buffer full, dropping event")
	}
}

// HandlerCount returns the number of handlers registered for a topic
func (b *Bus) HandlerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.eventCh:
			b.dispatch(ev)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bus) dispatch(ev event) {
	b.mu.RLock()
	regs := make([]registration, len(b.handlers[ev.topic]))
	copy(regs, b.handlers[ev.topic])
	b.mu.RUnlock()

	for _, r := range regs {
		go b.invoke(ev, r)
	}
}

func (b *Bus) invoke(ev event, r registration) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithComponent("events").Error().
				Str("topic", ev.topic).
				Str("handler", r.name).
				Interface("panic", rec).
				Msg("event handler panicked")
		}
	}()
	r.handler(ev.payload)
}
