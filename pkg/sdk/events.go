package sdk

import (
	"context"
	"sync"
)

// Handler receives events published on a topic
type Handler func(ctx context.Context, payload any)

// EventBus is the host-owned publish/subscribe channel shared with plugins
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any)
	Subscribe(topic string, handler Handler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	handler Handler
}

type eventBus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string][]subscription
}

// NewEventBus returns an in-process bus that delivers synchronously in subscription order
func NewEventBus() EventBus {
	return &eventBus{topics: make(map[string][]subscription)}
}

func (b *eventBus) Publish(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(ctx, payload)
	}
}

func (b *eventBus) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.topics[topic]
			for i, sub := range subs {
				if sub.id == id {
					b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}
