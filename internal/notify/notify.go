// Package notify carries user-facing messages from the viewer to whatever
// front-end is attached.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a user notification
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Message is one user notification
type Message struct {
	Level Level
	Text  string
	Time  time.Time
}

// Notifier receives user notifications
type Notifier interface {
	Notify(level Level, text string)
}

// Func adapts a function to Notifier
type Func func(level Level, text string)

func (f Func) Notify(level Level, text string) { f(level, text) }

// Discard drops every notification
var Discard Notifier = Func(func(Level, string) {})

// Hub fans notifications out to subscribers and mirrors them to a logger
type Hub struct {
	mu     sync.Mutex
	subs   map[int]func(Message)
	nextID int
	logger *slog.Logger
	now    func() time.Time
}

// NewHub creates a hub. A nil logger disables mirroring.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]func(Message)),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers fn for every future message and returns a cancel func
func (h *Hub) Subscribe(fn func(Message)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Notify implements Notifier
func (h *Hub) Notify(level Level, text string) {
	msg := Message{Level: level, Text: text, Time: h.now()}

	h.mu.Lock()
	subs := make([]func(Message), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("notification", "level", level.String(), "text", text)
	}
	for _, fn := range subs {
		fn(msg)
	}
}

// Recorder keeps every notification in order
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements Notifier
func (r *Recorder) Notify(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text, Time: time.Now()})
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Texts returns the recorded message texts
func (r *Recorder) Texts() []string {
	msgs := r.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

// Last returns the most recent message
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Reset forgets every recorded message
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
