// Package notify holds the single transient message shown after an operation.
package notify

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Lifetime is how long a message stays up.
const Lifetime = 5000 * time.Millisecond

// Kind classifies a message.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// Message is one operation outcome.
type Message struct {
	Text      string
	Kind      Kind
	CreatedAt time.Time
}

// Notifier holds at most one message and dismisses it after Lifetime.
// Showing a new message replaces the old one and cancels its timer.
type Notifier struct {
	mu       sync.Mutex
	clock    clock.WithDelayedExecution
	lifetime time.Duration

	current *Message
	timer   clock.Timer
	seq     uint64
	closed  bool

	subscribers []func(*Message)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock replaces the real clock.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(n *Notifier) { n.clock = c }
}

// WithLifetime overrides the dismissal delay.
func WithLifetime(d time.Duration) Option {
	return func(n *Notifier) { n.lifetime = d }
}

// New returns an empty Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		clock:    clock.RealClock{},
		lifetime: Lifetime,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers fn for every change. fn receives nil when the message is dismissed.
func (n *Notifier) Subscribe(fn func(*Message)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, fn)
}

// Show replaces the current message.
func (n *Notifier) Show(text string, kind Kind) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	msg := &Message{Text: text, Kind: kind, CreatedAt: n.clock.Now()}
	n.current = msg
	n.seq++
	seq := n.seq
	prev := n.timer
	n.timer = nil
	n.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	n.publish(msg)

	t := n.clock.AfterFunc(n.lifetime, func() { n.expire(seq) })

	n.mu.Lock()
	if n.seq == seq && !n.closed {
		n.timer = t
		t = nil
	}
	n.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

// Success shows a success message.
func (n *Notifier) Success(text string) { n.Show(text, Success) }

// Error shows an error message.
func (n *Notifier) Error(text string) { n.Show(text, Error) }

// Info shows an informational message.
func (n *Notifier) Info(text string) { n.Show(text, Info) }

// Current returns the message on screen, if any.
func (n *Notifier) Current() (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Message{}, false
	}
	return *n.current, true
}

// Dismiss removes the current message early.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.seq++
	t := n.timer
	n.timer = nil
	n.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	n.publish(nil)
}

// Close cancels the dismissal timer. Nothing is published afterwards.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.seq++
	t := n.timer
	n.timer = nil
	n.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	if n.closed || n.seq != seq {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.timer = nil
	n.mu.Unlock()

	n.publish(nil)
}

func (n *Notifier) publish(msg *Message) {
	n.mu.Lock()
	subs := append([]func(*Message){}, n.subscribers...)
	n.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}
