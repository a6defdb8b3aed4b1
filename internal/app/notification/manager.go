// Package notification broadcasts device snapshots to subscribers.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/playback"
)

// QueueSize is the number of notifications buffered per subscriber. When a
// subscriber falls behind, the oldest queued notification is dropped.
const QueueSize = 64

// Notification is one broadcast message.
type Notification struct {
	SequenceNo uint64
	Snapshot   device.Snapshot
	Event      *playback.Event // Set when the broadcast was caused by a state change
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription. Each one owns a
// goroutine that drains its queue into the stream.
type subscription struct {
	id     string
	stream Stream
	queue  chan *Notification
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// enqueue hands n to the subscriber without blocking.
func (s *subscription) enqueue(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- n:
		return
	default:
	}

	// Full: drop the oldest to make room.
	select {
	case <-s.queue:
		s.dropped++
		if s.dropped == 1 || s.dropped%100 == 0 {
			zlog.Warn().Msgf("notification: subscriber id=%s is slow, dropped=%d", s.id, s.dropped)
		}
	default:
	}
	select {
	case s.queue <- n:
	default:
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan *Notification, QueueSize),
		done:   make(chan struct{}),
	}
	m.subscriptions[sub.id] = sub
	go m.deliver(sub)

	zlog.Debug().Msgf("notification: subscribed id=%s total=%d", sub.id, len(m.subscriptions))
	return sub.id
}

// deliver sends queued notifications in order until the subscription ends
// or a send fails.
func (m *Manager) deliver(sub *subscription) {
	for {
		select {
		case <-sub.done:
			return
		case n := <-sub.queue:
			if err := sub.stream.Send(n); err != nil {
				zlog.Debug().Msgf("notification: dropping subscriber id=%s: %v", sub.id, err)
				m.Unsubscribe(sub.id)
				return
			}
		}
	}
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Broadcast stamps the notification with the next sequence number and queues
// it for every subscriber. It never waits on a stream.
func (m *Manager) Broadcast(n *Notification) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	n.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.subscriptions {
		sub.enqueue(n)
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subscriptions
	m.subscriptions = make(map[string]*subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
