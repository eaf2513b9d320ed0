package fanout

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSubscriber collects messages on a channel
type chanSubscriber struct {
	msgs   chan Message
	mu     sync.Mutex
	closed bool
}

func newChanSubscriber() *chanSubscriber {
	return &chanSubscriber{msgs: make(chan Message, 128)}
}

func (c *chanSubscriber) Send(msg Message) error {
	c.msgs <- msg
	return nil
}

func (c *chanSubscriber) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *chanSubscriber) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// blockingSubscriber blocks every Send until released
type blockingSubscriber struct {
	release chan struct{}
	closed  chan struct{}
}

func newBlockingSubscriber() *blockingSubscriber {
	return &blockingSubscriber{release: make(chan struct{}), closed: make(chan struct{})}
}

func (b *blockingSubscriber) Send(msg Message) error {
	<-b.release
	return nil
}

func (b *blockingSubscriber) Close() error {
	close(b.closed)
	return nil
}

func TestPublishDeliversInOrder(t *testing.T) {
	s := NewStream("caseboard", 16, time.Second)
	defer s.Close()

	sub := newChanSubscriber()
	s.Subscribe(sub)

	for i := 0; i < 5; i++ {
		s.Publish(Message{Kind: KindGraphUpdate, Action: "add_node", Payload: i})
	}

	for i := 0; i < 5; i++ {
		select {
		case msg := <-sub.msgs:
			assert.Equal(t, KindGraphUpdate, msg.Kind)
			assert.Equal(t, i, msg.Payload)
			assert.NotEmpty(t, msg.Timestamp)
		case <-time.After(time.Second):
			t.Fatalf("message %d not delivered", i)
		}
	}
}

func TestInitialSnapshotArrivesFirst(t *testing.T) {
	s := NewStream("caseboard", 16, time.Second)
	defer s.Close()

	sub := newChanSubscriber()
	s.Subscribe(sub, Message{Kind: KindSnapshot, Payload: "snap"})
	s.Publish(Message{Kind: KindGraphUpdate, Action: "add_node"})

	first := <-sub.msgs
	assert.Equal(t, KindSnapshot, first.Kind)
	second := <-sub.msgs
	assert.Equal(t, KindGraphUpdate, second.Kind)
}

func TestSlowSubscriberDroppedOthersUnaffected(t *testing.T) {
	s := NewStream("caseboard", 16, 100*time.Millisecond)
	defer s.Close()

	fast := newChanSubscriber()
	slow := newBlockingSubscriber()
	defer close(slow.release)
	s.Subscribe(fast)
	s.Subscribe(slow)
	require.Equal(t, 2, s.SubscriberCount())

	s.Publish(Message{Kind: KindGraphUpdate, Action: "add_node"})

	select {
	case <-fast.msgs:
	case <-time.After(time.Second):
		t.Fatal("fast subscriber did not receive update")
	}

	select {
	case <-slow.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("slow subscriber was not dropped")
	}
	assert.Eventually(t, func() bool { return s.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestQueueOverflowDropsSubscriber(t *testing.T) {
	s := NewStream("caseboard", 2, time.Second)
	defer s.Close()

	slow := newBlockingSubscriber()
	defer close(slow.release)
	s.Subscribe(slow)

	// First publish is picked up by the writer and blocks in Send; the
	// next two fill the queue; one more overflows it.
	for i := 0; i < 5; i++ {
		s.Publish(Message{Kind: KindGraphUpdate})
	}

	select {
	case <-slow.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("overflowing subscriber was not dropped")
	}
	assert.Equal(t, 0, s.SubscriberCount())
}

func TestUnsubscribeClosesSubscriber(t *testing.T) {
	s := NewStream("alerts", 16, time.Second)
	defer s.Close()

	sub := newChanSubscriber()
	s.Subscribe(sub)
	s.Unsubscribe(sub)

	assert.Equal(t, 0, s.SubscriberCount())
	assert.True(t, sub.isClosed())

	// Publishing after unsubscribe delivers nothing.
	s.Publish(Message{Kind: KindNewAlert})
	select {
	case <-sub.msgs:
		t.Fatal("unsubscribed subscriber received a message")
	case <-time.After(100 * time.Millisecond):
	}
}
