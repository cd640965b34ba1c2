package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix namespaces appliance topics on a shared NATS server.
const DefaultSubjectPrefix = "appliance.events"

const flushTimeout = 2 * time.Second

// NATSConfig configures a NATSBus.
type NATSConfig struct {
	// URL is the NATS server URL (e.g. "nats://appliance.local:4222").
	URL string `yaml:"url"`

	// SubjectPrefix is prepended to every topic. Default: DefaultSubjectPrefix.
	SubjectPrefix string `yaml:"subject_prefix"`

	// ReconnectWait is the delay between reconnect attempts. Default: 2s.
	ReconnectWait time.Duration `yaml:"reconnect_wait"`

	// Name identifies this client in NATS monitoring.
	Name string `yaml:"name"`
}

// NATSBus is a Bus backed by a NATS connection.
type NATSBus struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[subKey]*natsSub
}

type natsSub struct {
	sub  *Subscription
	nsub *nats.Subscription
}

// NewNATSBus connects to NATS and returns a bus. The connection retries
// forever; connection state changes are logged.
func NewNATSBus(cfg NATSConfig, logger *zap.Logger) (*NATSBus, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "nassession"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "events"))

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger.Info("nats event bus connected",
		zap.String("url", cfg.URL),
		zap.String("subject_prefix", cfg.SubjectPrefix),
	)

	return &NATSBus{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[subKey]*natsSub),
	}, nil
}

// Subject maps a topic to its NATS subject.
func Subject(prefix, topic string) string {
	return strings.TrimSuffix(prefix, ".") + "." + topic
}

// Subscribe creates a NATS subscription for (topic, id).
func (b *NATSBus) Subscribe(topic, id string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := subKey{topic, id}
	if _, exists := b.subs[key]; exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateSubscription, topic, id)
	}

	sub := newSubscription(topic, id)
	nsub, err := b.conn.Subscribe(Subject(b.prefix, topic), func(m *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			b.logger.Warn("dropping malformed event",
				zap.String("topic", topic),
				zap.Error(err),
			)
			return
		}
		ev.Topic = topic
		sub.deliver(b.ctx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	// The server must know the interest before callers fetch the current
	// value, or a change published in between is lost.
	if err := b.conn.FlushTimeout(flushTimeout); err != nil {
		b.logger.Warn("subscription not confirmed by server",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}

	b.subs[key] = &natsSub{sub: sub, nsub: nsub}
	b.logger.Debug("subscribed",
		zap.String("topic", topic),
		zap.String("subscription_id", id),
	)
	return sub, nil
}

// Unsubscribe cancels (topic, id). Unknown pairs are ignored.
func (b *NATSBus) Unsubscribe(topic, id string) error {
	b.mu.Lock()
	entry, ok := b.subs[subKey{topic, id}]
	delete(b.subs, subKey{topic, id})
	b.mu.Unlock()

	if !ok {
		return nil
	}

	entry.sub.cancel()
	if err := entry.nsub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", topic, err)
	}
	return nil
}

// Publish sends ev on topic.
func (b *NATSBus) Publish(ctx context.Context, topic string, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ev.Topic = topic
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.conn.Publish(Subject(b.prefix, topic), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Connected reports whether the NATS connection is currently up.
func (b *NATSBus) Connected() bool {
	return b.conn.IsConnected()
}

// Close cancels every subscription and drains the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[subKey]*natsSub)
	b.mu.Unlock()

	b.cancel()
	for _, entry := range subs {
		entry.sub.cancel()
	}

	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("failed to drain nats connection: %w", err)
	}
	return nil
}
