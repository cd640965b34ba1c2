package events

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBus is an in-process Bus.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[subKey]*Subscription
	closed bool
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[subKey]*Subscription)}
}

// Subscribe registers a subscription for (topic, id).
func (b *MemoryBus) Subscribe(topic, id string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	key := subKey{topic, id}
	if _, exists := b.subs[key]; exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateSubscription, topic, id)
	}

	sub := newSubscription(topic, id)
	b.subs[key] = sub
	return sub, nil
}

// Unsubscribe cancels (topic, id). Unknown pairs are ignored.
func (b *MemoryBus) Unsubscribe(topic, id string) error {
	b.mu.Lock()
	sub, ok := b.subs[subKey{topic, id}]
	delete(b.subs, subKey{topic, id})
	b.mu.Unlock()

	if ok {
		sub.cancel()
	}
	return nil
}

// Publish delivers ev to every subscriber of topic.
func (b *MemoryBus) Publish(ctx context.Context, topic string, ev Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	var targets []*Subscription
	for key, sub := range b.subs {
		if key.topic == topic {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	ev.Topic = topic
	for _, sub := range targets {
		sub.deliver(ctx, ev)
	}
	return ctx.Err()
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for key := range b.subs {
		if key.topic == topic {
			n++
		}
	}
	return n
}

// Close cancels all subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[subKey]*Subscription)
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	return nil
}
