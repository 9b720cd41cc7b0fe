package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/chatwire/chatwire/internal/infrastructure/logging"
)

// Broadcaster fans an admitted message out to every live connection of
// its session.
//
// Delivery runs on one dispatcher goroutine per session, started lazily
// and owning a bounded queue: successive messages for the same session
// reach each connection in admission order, sessions do not block each
// other, and a burst deeper than the queue drops messages rather than
// stalling the admission path. A failed send detaches the connection
// from the registry (implicit disconnect); it never fails the broadcast.
type Broadcaster struct {
	registry  *Registry
	logger    *logging.Logger
	queueSize int
	observer  BroadcastObserver

	mu     sync.Mutex
	queues map[string]chan Message
	closed bool
	wg     sync.WaitGroup
}

// BroadcastObserver receives per-message delivery outcomes.
// Implementations must not block.
type BroadcastObserver interface {
	RecordBroadcast(sessionID string, recipients, failures int)
}

// wireMessage is the broadcast frame. The session id is omitted: it is
// redundant with the channel the frame arrives on.
type wireMessage struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	SenderType SenderType `json:"sender_type"`
	SenderID   string     `json:"sender_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewBroadcaster creates a Broadcaster delivering through the registry.
func NewBroadcaster(registry *Registry, logger *logging.Logger, queueSize int) *Broadcaster {
	if queueSize < 1 {
		queueSize = 256
	}
	return &Broadcaster{
		registry:  registry,
		logger:    logger.With("component", "broadcast"),
		queueSize: queueSize,
		queues:    make(map[string]chan Message),
	}
}

// SetObserver installs a delivery-outcome observer. Must be called
// before the first Broadcast.
func (b *Broadcaster) SetObserver(obs BroadcastObserver) {
	b.observer = obs
}

// Broadcast enqueues a message for delivery to the session's current
// connections. Non-blocking: the caller returns immediately; a full
// queue drops the message with a warning.
func (b *Broadcaster) Broadcast(sessionID string, msg Message) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	queue, ok := b.queues[sessionID]
	if !ok {
		queue = make(chan Message, b.queueSize)
		b.queues[sessionID] = queue
		b.wg.Add(1)
		go b.dispatch(sessionID, queue)
	}
	b.mu.Unlock()

	select {
	case queue <- msg:
	default:
		b.logger.Warn("broadcast queue full, dropping message",
			"session_id", sessionID, "message_id", msg.ID)
	}
}

// dispatch delivers queued messages for one session, in order.
func (b *Broadcaster) dispatch(sessionID string, queue chan Message) {
	defer b.wg.Done()

	for msg := range queue {
		b.deliver(sessionID, msg)
	}
}

func (b *Broadcaster) deliver(sessionID string, msg Message) {
	conns := b.registry.ConnectionsFor(sessionID)
	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(wireMessage{
		ID:         msg.ID,
		Content:    msg.Content,
		SenderType: msg.SenderType,
		SenderID:   msg.SenderID,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		b.logger.Error("marshalling broadcast frame", "error", err, "message_id", msg.ID)
		return
	}

	failures := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			// Implicit disconnect: drop the connection, keep going.
			b.registry.DetachConnection(sessionID, conn)
			b.logger.Debug("detached connection after failed delivery",
				"session_id", sessionID, "error", err)
			failures++
		}
	}
	if b.observer != nil {
		b.observer.RecordBroadcast(sessionID, len(conns), failures)
	}
}

// Close stops accepting new messages, drains the per-session queues,
// and waits for all dispatchers to finish.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, queue := range b.queues {
		close(queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
