package grid

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// NotificationSink receives transient user-facing messages. Presentation is
// up to the implementation.
type NotificationSink interface {
	Notify(message string, kind Kind, d time.Duration)
}

// NotifyFunc adapts a function to NotificationSink.
type NotifyFunc func(message string, kind Kind, d time.Duration)

// Notify implements NotificationSink.
func (f NotifyFunc) Notify(message string, kind Kind, d time.Duration) { f(message, kind, d) }

type discardSink struct{}

func (discardSink) Notify(string, Kind, time.Duration) {}

// Notification is one queued message.
type Notification struct {
	ID       string        `json:"id"`
	Message  string        `json:"message"`
	Kind     Kind          `json:"kind"`
	Duration time.Duration `json:"duration"`
	Created  time.Time     `json:"created"`
}

// Expired reports whether the notification's display time has passed.
func (n Notification) Expired(now time.Time) bool {
	return n.Duration > 0 && now.After(n.Created.Add(n.Duration))
}

// Toasts is an in-memory NotificationSink that queues messages until they
// are drained or expire.
type Toasts struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time

	// OnNotify, when set, is called for every message after it is queued.
	OnNotify func(Notification)
}

// NewToasts creates an empty queue.
func NewToasts() *Toasts {
	return &Toasts{now: time.Now}
}

// Notify implements NotificationSink.
func (t *Toasts) Notify(message string, kind Kind, d time.Duration) {
	n := Notification{
		ID:       uuid.NewString(),
		Message:  message,
		Kind:     kind,
		Duration: d,
		Created:  t.now(),
	}
	t.mu.Lock()
	t.items = append(t.items, n)
	hook := t.OnNotify
	t.mu.Unlock()
	if hook != nil {
		hook(n)
	}
}

// Pending returns the messages that have not yet expired, oldest first.
// Expired messages are dropped from the queue.
func (t *Toasts) Pending() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	live := t.items[:0]
	for _, n := range t.items {
		if !n.Expired(now) {
			live = append(live, n)
		}
	}
	t.items = live
	return append([]Notification(nil), live...)
}

// Drain returns every unexpired message and empties the queue.
func (t *Toasts) Drain() []Notification {
	out := t.Pending()
	t.mu.Lock()
	t.items = nil
	t.mu.Unlock()
	return out
}
