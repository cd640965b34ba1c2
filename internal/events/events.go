// Package events carries server-push updates for named topics.
//
// A subscriber picks its own identifier per topic; the (topic, id) pair is the
// key used to cancel the subscription later. Two transports are provided: an
// in-process MemoryBus and a NATS-backed NATSBus.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Push topics published by the appliance.
const (
	TopicFailoverStatus          = "failover.status"
	TopicFailoverDisabledReasons = "failover.disabled.reasons"
)

var (
	// ErrDuplicateSubscription indicates the (topic, id) pair is already in use.
	ErrDuplicateSubscription = errors.New("subscription already exists")

	// ErrBusClosed indicates the bus has been closed.
	ErrBusClosed = errors.New("event bus closed")
)

// Event is one push update.
type Event struct {
	// Topic is the collection the event belongs to
	Topic string `json:"collection"`

	// Kind is ADDED, CHANGED or REMOVED
	Kind string `json:"msg,omitempty"`

	// Fields holds the topic-specific payload
	Fields json.RawMessage `json:"fields,omitempty"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Fields) == 0 {
		return fmt.Errorf("event on %s has no fields", e.Topic)
	}
	if err := json.Unmarshal(e.Fields, v); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", e.Topic, err)
	}
	return nil
}

// NewEvent builds a CHANGED event with fields marshalled to JSON.
func NewEvent(topic string, fields any) (Event, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s fields: %w", topic, err)
	}
	return Event{Topic: topic, Kind: "CHANGED", Fields: data}, nil
}

// Subscriber is the consumer-facing half of a bus.
type Subscriber interface {
	Subscribe(topic, id string) (*Subscription, error)
	Unsubscribe(topic, id string) error
}

// Bus is a push-event transport.
type Bus interface {
	Subscriber
	Publish(ctx context.Context, topic string, ev Event) error
	Close() error
}

// Subscription delivers events for one (topic, id) pair.
//
// C is never closed; Done is closed once the subscription is cancelled and
// consumers must select on both.
type Subscription struct {
	Topic string
	ID    string

	ch   chan Event
	done chan struct{}
	once sync.Once
}

const subscriptionBuffer = 16

func newSubscription(topic, id string) *Subscription {
	return &Subscription{
		Topic: topic,
		ID:    id,
		ch:    make(chan Event, subscriptionBuffer),
		done:  make(chan struct{}),
	}
}

// C returns the delivery channel.
func (s *Subscription) C() <-chan Event { return s.ch }

// Done is closed when the subscription has been cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// deliver blocks until the event is queued, the subscription is cancelled or
// ctx is done. Events are never dropped silently while the subscription lives.
func (s *Subscription) deliver(ctx context.Context, ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.ch <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Subscription) cancel() {
	s.once.Do(func() { close(s.done) })
}

type subKey struct {
	topic string
	id    string
}
