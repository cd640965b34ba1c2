// Package notify shows transient user-facing messages and reports errors
// that the sign-in flow does not interpret itself.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Position is where a transient message is anchored.
type Position string

const (
	PositionBottom Position = "bottom"
	PositionTop    Position = "top"
)

// DefaultDuration is how long a message stays visible when no duration is given.
const DefaultDuration = 4000 * time.Millisecond

// Options control how a message is displayed.
type Options struct {
	// Duration before the message auto-dismisses. Default: 4000ms.
	Duration time.Duration

	// Position of the message. Default: bottom.
	Position Position
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.Position == "" {
		o.Position = PositionBottom
	}
	return o
}

// Sink displays transient notifications.
type Sink interface {
	// Show displays message with a dismiss action label, replacing any
	// message already visible.
	Show(message, action string, opts Options)

	// Dismiss hides the visible message, if any.
	Dismiss()
}

// Message is a notification as it was shown.
type Message struct {
	Text     string        `json:"text"`
	Action   string        `json:"action"`
	Position Position      `json:"position"`
	Duration time.Duration `json:"duration"`
	ShownAt  time.Time     `json:"shown_at"`
}

// Snackbar is a Sink that writes messages to an io.Writer and keeps at most
// one of them visible until it times out or is dismissed.
type Snackbar struct {
	out    io.Writer
	logger *zap.Logger

	mu      sync.Mutex
	current *Message
	timer   *time.Timer
	seq     uint64
	closed  bool
}

// NewSnackbar creates a Snackbar writing to out. out may be nil.
func NewSnackbar(out io.Writer, logger *zap.Logger) *Snackbar {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snackbar{
		out:    out,
		logger: logger.With(zap.String("component", "notify")),
	}
}

// Show implements Sink.
func (s *Snackbar) Show(message, action string, opts Options) {
	opts = opts.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.stopTimerLocked()
	s.seq++
	seq := s.seq

	s.current = &Message{
		Text:     message,
		Action:   action,
		Position: opts.Position,
		Duration: opts.Duration,
		ShownAt:  time.Now(),
	}
	s.timer = time.AfterFunc(opts.Duration, func() { s.expire(seq) })

	if action != "" {
		fmt.Fprintf(s.out, "%s  [%s]\n", message, action)
	} else {
		fmt.Fprintln(s.out, message)
	}

	s.logger.Info("notification shown",
		zap.String("message", message),
		zap.String("position", string(opts.Position)),
		zap.Duration("duration", opts.Duration),
	)
}

// Dismiss implements Sink.
func (s *Snackbar) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	if s.current != nil {
		s.logger.Debug("notification dismissed", zap.String("message", s.current.Text))
	}
	s.current = nil
}

// Current returns the visible message.
func (s *Snackbar) Current() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Message{}, false
	}
	return *s.current, true
}

// Close dismisses the visible message and stops any pending timer.
// Later calls to Show are ignored.
func (s *Snackbar) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.stopTimerLocked()
	s.current = nil
}

// expire hides the message shown as seq unless a newer one replaced it.
func (s *Snackbar) expire(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != seq || s.current == nil {
		return
	}
	s.current = nil
	s.timer = nil
}

func (s *Snackbar) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
