package signin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/events"
	"github.com/yaroslav/nassession/internal/logging"
	"github.com/yaroslav/nassession/internal/metrics"
	"github.com/yaroslav/nassession/models"
)

type statusFields struct {
	Status string `json:"status"`
}

type reasonsFields struct {
	DisabledReasons []models.DisabledReason `json:"disabled_reasons"`
}

// subscribe starts both failover push subscriptions. Topics that are
// already subscribed are left alone.
func (c *Coordinator) subscribe(ctx context.Context) error {
	topics := []struct{ topic, id string }{
		{events.TopicFailoverStatus, c.statusSubID},
		{events.TopicFailoverDisabledReasons, c.reasonsSubID},
	}

	for _, t := range topics {
		if err := c.subscribeTopic(t.topic, t.id); err != nil {
			return err
		}
	}

	logging.FromContext(ctx).Debug("subscribed to failover updates")
	return nil
}

func (c *Coordinator) subscribeTopic(topic, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return models.ErrClosed
	}
	if _, ok := c.subs[topic]; ok {
		return nil
	}

	sub, err := c.channel.Subscribe(topic, id)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	c.subs[topic] = sub

	c.wg.Add(1)
	go c.handlePush(sub)

	c.logger.Debug("subscribed",
		zap.String(logging.FieldTopic, topic),
		zap.String(logging.FieldSubscriptionID, id),
	)
	return nil
}

// unsubscribeAll cancels every push subscription. Events still in flight
// for them are dropped.
func (c *Coordinator) unsubscribeAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*events.Subscription)
	c.mu.Unlock()

	for topic, sub := range subs {
		if err := c.channel.Unsubscribe(topic, sub.ID); err != nil {
			c.logger.Warn("failed to unsubscribe",
				zap.String(logging.FieldTopic, topic),
				zap.Error(err),
			)
			continue
		}
		c.logger.Debug("unsubscribed", zap.String(logging.FieldTopic, topic))
	}
}

// handlePush applies events from one subscription until it ends.
func (c *Coordinator) handlePush(sub *events.Subscription) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-sub.Done():
			return
		case ev := <-sub.C():
			c.applyEvent(sub, ev)
		}
	}
}

func (c *Coordinator) applyEvent(sub *events.Subscription, ev events.Event) {
	var apply func(*state)

	switch sub.Topic {
	case events.TopicFailoverStatus:
		var fields statusFields
		if err := ev.Decode(&fields); err != nil {
			c.logger.Warn("ignoring malformed status event", zap.Error(err))
			return
		}
		status, err := models.ParseFailoverStatus(fields.Status)
		if err != nil {
			c.logger.Warn("ignoring malformed status event", zap.Error(err))
			return
		}
		apply = func(s *state) {
			s.setStatus(status)
			metrics.SetFailoverStatus(status)
		}

	case events.TopicFailoverDisabledReasons:
		var fields reasonsFields
		if err := ev.Decode(&fields); err != nil {
			c.logger.Warn("ignoring malformed disabled reasons event", zap.Error(err))
			return
		}
		apply = func(s *state) {
			if s.failover != nil && !s.failover.Status.IsSingle() {
				s.failover.DisabledReasons = fields.DisabledReasons
			}
		}

	default:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Only the live subscription for the topic may change the state.
	if c.subs[sub.Topic] != sub {
		return
	}

	apply(&c.st)
	c.publishLocked()
	metrics.PushEvents.WithLabelValues(sub.Topic).Inc()
}
