// Package changefeed fans record change signals out to live subscribers.
// Events carry ids only; subscribers re-fetch whatever they display.
package changefeed

import (
	"context"
	"log/slog"
	"sync"
)

const (
	CollectionClients     = "clients"
	CollectionProofs      = "payment_proofs"
	CollectionCredentials = "broker_credentials"
	CollectionSettings    = "admin_settings"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

type Event struct {
	Collection string    `json:"collection"`
	Type       EventType `json:"type"`
	ID         string    `json:"id"`

	// Routing only; never sent to subscribers.
	ClientID string `json:"client_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// Payload is the part of an event a subscriber receives.
func (e Event) Payload() map[string]string {
	return map[string]string{"type": string(e.Type), "id": e.ID}
}

// VisibleTo decides whether a subscriber sees an event. Operators see
// everything; a client sees its own records and the shared settings.
func (e Event) VisibleTo(userID, clientID string, operator bool) bool {
	if operator {
		return true
	}
	switch e.Collection {
	case CollectionSettings:
		return true
	case CollectionClients:
		return clientID != "" && e.ID == clientID
	case CollectionProofs:
		return clientID != "" && e.ClientID == clientID
	case CollectionCredentials:
		return userID != "" && e.UserID == userID
	}
	return false
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe() (<-chan Event, func())
}

// MemoryBus delivers events to subscribers in this process. A subscriber
// that falls behind loses events rather than blocking publishers.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
	logger *slog.Logger
}

func NewMemoryBus(buffer int, logger *slog.Logger) *MemoryBus {
	if buffer <= 0 {
		buffer = 32
	}
	return &MemoryBus{
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("⚠️ change feed subscriber is slow, dropping event",
				"collection", ev.Collection, "id", ev.ID)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *MemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
