package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	TypeRSVP             EventType = "rsvp"
	TypeGuestCreated     EventType = "guest_created"
	TypeGuestUpdated     EventType = "guest_updated"
	TypeGuestLinked      EventType = "guest_linked"
	TypeGuestUnlinked    EventType = "guest_unlinked"
	TypeGuestArchived    EventType = "guest_archived"
	TypeGuestRestored    EventType = "guest_restored"
	TypeGuestsSynced     EventType = "guests_synced"
	TypeBookingCreated   EventType = "booking_created"
	TypeBookingCancelled EventType = "booking_cancelled"
)

// Event is a fire-and-forget notice that a guest, RSVP or booking changed.
type Event struct {
	Type       EventType      `json:"type"`
	GuestIDs   []uuid.UUID    `json:"guest_ids,omitempty"`
	AccountID  *uuid.UUID     `json:"account_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe hub. It keeps no history: a
// subscriber only sees events emitted after it subscribed.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	byType map[EventType][]subscription
	all    []subscription
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		byType: make(map[EventType][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for one event type and returns its unsubscribe func.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byType[eventType] = append(b.byType[eventType], subscription{id: id, handler: handler})

	return b.unsubscriber(func() {
		b.byType[eventType] = without(b.byType[eventType], id)
		if len(b.byType[eventType]) == 0 {
			delete(b.byType, eventType)
		}
	})
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: handler})

	return b.unsubscriber(func() {
		b.all = without(b.all, id)
	})
}

func (b *Bus) unsubscriber(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			remove()
		})
	}
}

// Emit delivers e synchronously to the current subscribers of its type,
// then to the catch-all subscribers. A panicking handler is logged and skipped.
func (b *Bus) Emit(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.byType[e.Type])+len(b.all))
	for _, s := range b.byType[e.Type] {
		handlers = append(handlers, s.handler)
	}
	for _, s := range b.all {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", string(e.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	h(e)
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
