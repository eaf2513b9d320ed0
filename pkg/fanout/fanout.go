package fanout

import (
	"sync"
	"time"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

// Message kinds delivered over the streams.
const (
	KindSnapshot    = "snapshot"
	KindGraphUpdate = "graph_update"
	KindNewAlert    = "new_alert"
)

// Message is one frame delivered to a stream subscriber. Timestamp is
// ISO-8601 (RFC 3339).
type Message struct {
	Kind      string `json:"kind"`
	Action    string `json:"action,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	Alert     any    `json:"alert,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Stamp fills Timestamp if the producer left it empty
func (m Message) Stamp() Message {
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return m
}

// Subscriber is a sink for stream messages. Send may block; the stream
// bounds it with the configured send timeout and drops the subscriber on
// timeout or error. Close is called exactly once when the subscriber is
// removed.
type Subscriber interface {
	Send(msg Message) error
	Close() error
}

type subscriberState struct {
	sub    Subscriber
	outCh  chan Message
	doneCh chan struct{}
	once   sync.Once
}

// Stream fans messages out to its subscribers. Each subscriber owns a
// bounded outbound queue drained by a dedicated writer goroutine, so a
// slow subscriber never applies back-pressure to the producer: on queue
// overflow or send timeout the subscriber is dropped.
type Stream struct {
	name        string
	buffer      int
	sendTimeout time.Duration

	mu   sync.Mutex
	subs map[*subscriberState]struct{}
	wg   sync.WaitGroup
}

// NewStream creates a named stream. buffer is the per-subscriber queue
// length; sendTimeout bounds one Send call.
func NewStream(name string, buffer int, sendTimeout time.Duration) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{
		name:        name,
		buffer:      buffer,
		sendTimeout: sendTimeout,
		subs:        make(map[*subscriberState]struct{}),
	}
}

// Subscribe registers a subscriber and optionally queues initial
// messages (e.g. the caseboard snapshot) ahead of any later publish.
func (s *Stream) Subscribe(sub Subscriber, initial ...Message) {
	st := &subscriberState{
		sub:    sub,
		outCh:  make(chan Message, s.buffer),
		doneCh: make(chan struct{}),
	}

	s.mu.Lock()
	s.subs[st] = struct{}{}
	for _, msg := range initial {
		// The fresh queue is at least as large as needed for a single
		// snapshot frame; overflow here means a misconfigured buffer.
		select {
		case st.outCh <- msg.Stamp():
		default:
		}
	}
	s.mu.Unlock()

	metrics.Subscribers.WithLabelValues(s.name).Inc()

	s.wg.Add(1)
	go s.writeLoop(st)
}

// Unsubscribe removes a subscriber (e.g. on client disconnect)
func (s *Stream) Unsubscribe(sub Subscriber) {
	s.mu.Lock()
	var target *subscriberState
	for st := range s.subs {
		if st.sub == sub {
			target = st
			break
		}
	}
	s.mu.Unlock()
	if target != nil {
		s.drop(target, "disconnect")
	}
}

// Publish queues a message for every subscriber. Never blocks: a
// subscriber whose queue is full is dropped.
func (s *Stream) Publish(msg Message) {
	msg = msg.Stamp()

	s.mu.Lock()
	states := make([]*subscriberState, 0, len(s.subs))
	for st := range s.subs {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		select {
		case st.outCh <- msg:
		case <-st.doneCh:
		default:
			log.WithStream(s.name).Warn().Msg("subscriber queue overflow, dropping subscriber")
			s.drop(st, "overflow")
		}
	}
}

// SubscriberCount returns the number of live subscribers
func (s *Stream) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close drops every subscriber and waits for their writers to exit
func (s *Stream) Close() {
	s.mu.Lock()
	states := make([]*subscriberState, 0, len(s.subs))
	for st := range s.subs {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		s.drop(st, "shutdown")
	}
	s.wg.Wait()
}

func (s *Stream) writeLoop(st *subscriberState) {
	defer s.wg.Done()

	for {
		select {
		case msg := <-st.outCh:
			if !s.sendOne(st, msg) {
				return
			}
		case <-st.doneCh:
			return
		}
	}
}

// sendOne delivers one message, bounded by the send timeout. Returns
// false when the subscriber has been dropped.
func (s *Stream) sendOne(st *subscriberState, msg Message) bool {
	errCh := make(chan error, 1)
	go func() {
		errCh <- st.sub.Send(msg)
	}()

	timer := time.NewTimer(s.sendTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithStream(s.name).Debug().Err(err).Msg("subscriber send failed, dropping")
			s.drop(st, "send_error")
			return false
		}
		return true
	case <-timer.C:
		log.WithStream(s.name).Warn().Dur("timeout", s.sendTimeout).Msg("subscriber send timed out, dropping")
		s.drop(st, "timeout")
		return false
	}
}

func (s *Stream) drop(st *subscriberState, reason string) {
	st.once.Do(func() {
		s.mu.Lock()
		delete(s.subs, st)
		s.mu.Unlock()
		close(st.doneCh)
		_ = st.sub.Close()
		metrics.Subscribers.WithLabelValues(s.name).Dec()
		if reason != "disconnect" && reason != "shutdown" {
			metrics.SubscribersDropped.WithLabelValues(s.name, reason).Inc()
		}
	})
}
