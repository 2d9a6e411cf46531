package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// changeBufferSize bounds how many events a slow subscriber may lag behind.
// Events beyond that are dropped; subscribers re-query the store anyway.
const changeBufferSize = 16

// ChangeEvent describes one appointment mutation.
type ChangeEvent struct {
	ID            string    `json:"id"`
	Action        string    `json:"action"`
	AppointmentID int64     `json:"appointment_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewChangeEvent(action string, appointmentID int64) ChangeEvent {
	return ChangeEvent{
		ID:            uuid.NewString(),
		Action:        action,
		AppointmentID: appointmentID,
		OccurredAt:    time.Now().UTC(),
	}
}

// ChangeNotifier fans appointment mutations out to list subscribers.
type ChangeNotifier interface {
	Publish(ctx context.Context, event ChangeEvent) error
	// Subscribe returns a channel of events that is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
	Close() error
}

type memoryChangeNotifier struct {
	mu          sync.Mutex
	subscribers map[string]chan ChangeEvent
	closed      bool
}

// NewMemoryChangeNotifier returns an in-process notifier for single-instance deployments.
func NewMemoryChangeNotifier() ChangeNotifier {
	return &memoryChangeNotifier{
		subscribers: make(map[string]chan ChangeEvent),
	}
}

func (n *memoryChangeNotifier) Publish(ctx context.Context, event ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (n *memoryChangeNotifier) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	ch := make(chan ChangeEvent, changeBufferSize)
	id := uuid.NewString()

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch, nil
	}
	n.subscribers[id] = ch
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.remove(id)
	}()

	return ch, nil
}

func (n *memoryChangeNotifier) remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.subscribers[id]; ok {
		delete(n.subscribers, id)
		close(ch)
	}
}

func (n *memoryChangeNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, ch := range n.subscribers {
		delete(n.subscribers, id)
		close(ch)
	}
	n.closed = true
	return nil
}
