// Package toast implements the in-process notification queue behind the
// transient messages shown on every screen.
//
// A notification moves through three phases: visible, fading and removed.
// Each phase change is broadcast to every subscriber as a full snapshot of
// the queue, in the order the changes happen.
package toast

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// DefaultDuration is how long a notification stays fully visible when
	// the request does not set a duration.
	DefaultDuration = 3 * time.Second

	// FadeGrace is the time between the fade transition and removal.
	FadeGrace = 300 * time.Millisecond

	// MaxDuration is the longest visible duration a request may ask for.
	MaxDuration = 24 * time.Hour
)

// Kind classifies a notification for display purposes only.
type Kind string

const (
	KindDefault Kind = "default"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
)

// Request describes a notification to enqueue.
type Request struct {
	Title       string        `validate:"required"`
	Description string
	Kind        Kind          `validate:"omitempty,oneof=default success error warning"`
	Duration    time.Duration `validate:"gte=0,lte=24h"`
}

// Notification is an active entry in the queue.
type Notification struct {
	ID          string
	Title       string
	Description string
	Kind        Kind
	Duration    time.Duration
	Visible     bool
	CreatedAt   time.Time
}

// Listener receives the full collection after every change. The slice is
// a copy owned by the listener.
//
// A listener may unsubscribe itself and may read the queue with Snapshot or
// Len. It must not mutate the queue (Enqueue, Dismiss, Clear) from inside
// the call; hand the snapshot off instead.
type Listener func([]Notification)

type subscriber struct {
	id       uint64
	listener Listener
	active   bool
}

// pending holds the two deferred transitions of one notification so they
// can be cancelled together.
type pending struct {
	fade   Timer
	remove Timer
}

func (p pending) stop() {
	p.fade.Stop()
	p.remove.Stop()
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the wall clock, typically with a simulated one in tests.
func WithClock(c Clock) Option {
	return func(q *Queue) {
		q.clock = c
	}
}

// WithDefaultDuration overrides DefaultDuration for requests without one.
func WithDefaultDuration(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.defaultDuration = d
		}
	}
}

// WithLogger sets the logger used for lifecycle debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// Queue owns the ordered collection of active notifications.
//
// Mutations are serialized and each one is broadcast before the next
// begins, so listeners observe changes in mutation order. Listeners run
// outside the state lock.
type Queue struct {
	// broadcastMu orders whole mutate-and-broadcast steps; mu guards state.
	broadcastMu     sync.Mutex
	mu              sync.Mutex
	clock           Clock
	validate        *validator.Validate
	logger          *slog.Logger
	defaultDuration time.Duration
	items           []Notification
	timers          map[string]pending
	subscribers     []*subscriber
	nextSubscriber  uint64
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		clock:           systemClock{},
		validate:        validator.New(),
		logger:          slog.Default(),
		defaultDuration: DefaultDuration,
		timers:          make(map[string]pending),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue validates req, appends a visible notification and schedules its
// fade and removal. Invalid requests return an error wrapping
// ErrInvalidArgument and leave the queue untouched.
func (q *Queue) Enqueue(req Request) (Notification, error) {
	if err := q.validate.Struct(req); err != nil {
		return Notification{}, invalidArgument(err)
	}

	kind := req.Kind
	if kind == "" {
		kind = KindDefault
	}
	duration := req.Duration
	if duration == 0 {
		duration = q.defaultDuration
	}

	var n Notification
	q.mutate(func() bool {
		n = Notification{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Kind:        kind,
			Duration:    duration,
			Visible:     true,
			CreatedAt:   q.clock.Now(),
		}
		q.items = append(q.items, n)

		id := n.ID
		q.timers[id] = pending{
			fade:   q.clock.AfterFunc(duration, func() { q.fade(id) }),
			remove: q.clock.AfterFunc(duration+FadeGrace, func() { q.remove(id) }),
		}

		q.logger.Debug("toast enqueued", "id", id, "kind", kind, "duration", duration)
		return true
	})
	return n, nil
}

// Subscribe registers l for every future change. The returned function
// deregisters it and may be called any number of times.
func (q *Queue) Subscribe(l Listener) (unsubscribe func()) {
	q.mu.Lock()
	sub := &subscriber{id: q.nextSubscriber, listener: l, active: true}
	q.nextSubscriber++
	q.subscribers = append(q.subscribers, sub)
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		sub.active = false
		q.subscribers = slices.DeleteFunc(q.subscribers, func(s *subscriber) bool {
			return s.id == sub.id
		})
	}
}

// Snapshot returns a copy of the active notifications in display order.
func (q *Queue) Snapshot() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Len returns the number of active notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dismiss cancels the pending transitions of id and removes it at once.
// It reports false when id is not in the queue.
func (q *Queue) Dismiss(id string) bool {
	var found bool
	q.mutate(func() bool {
		idx := q.indexLocked(id)
		if idx < 0 {
			return false
		}
		if p, ok := q.timers[id]; ok {
			p.stop()
			delete(q.timers, id)
		}
		q.items = slices.Delete(q.items, idx, idx+1)
		found = true

		q.logger.Debug("toast dismissed", "id", id)
		return true
	})
	return found
}

// Clear cancels every pending transition and empties the queue.
func (q *Queue) Clear() {
	q.mutate(func() bool {
		for id, p := range q.timers {
			p.stop()
			delete(q.timers, id)
		}
		if len(q.items) == 0 {
			return false
		}
		q.items = nil
		return true
	})
}

// Info enqueues a default notification, logging rather than returning
// validation failures.
func (q *Queue) Info(title, description string) {
	q.notify(KindDefault, title, description)
}

// Success enqueues a success notification.
func (q *Queue) Success(title, description string) {
	q.notify(KindSuccess, title, description)
}

// Warning enqueues a warning notification.
func (q *Queue) Warning(title, description string) {
	q.notify(KindWarning, title, description)
}

// Error enqueues an error notification.
func (q *Queue) Error(title, description string) {
	q.notify(KindError, title, description)
}

func (q *Queue) notify(kind Kind, title, description string) {
	_, err := q.Enqueue(Request{Title: title, Description: description, Kind: kind})
	if err != nil {
		q.logger.Warn("dropping toast", "kind", kind, "error", err)
	}
}

// fade marks id as fading. A missing or already fading id is a no-op.
func (q *Queue) fade(id string) {
	q.mutate(func() bool {
		idx := q.indexLocked(id)
		if idx < 0 || !q.items[idx].Visible {
			return false
		}
		q.items[idx].Visible = false
		return true
	})
}

// remove deletes id from the queue. A missing id is a no-op.
func (q *Queue) remove(id string) {
	q.mutate(func() bool {
		delete(q.timers, id)
		idx := q.indexLocked(id)
		if idx < 0 {
			return false
		}
		q.items = slices.Delete(q.items, idx, idx+1)

		q.logger.Debug("toast removed", "id", id)
		return true
	})
}

func (q *Queue) indexLocked(id string) int {
	return slices.IndexFunc(q.items, func(n Notification) bool {
		return n.ID == id
	})
}

// mutate runs change under the state lock and, when it reports a change,
// hands every subscriber its own copy of the result after releasing it.
func (q *Queue) mutate(change func() bool) {
	q.broadcastMu.Lock()
	defer q.broadcastMu.Unlock()

	q.mu.Lock()
	if !change() {
		q.mu.Unlock()
		return
	}
	items := slices.Clone(q.items)
	subs := slices.Clone(q.subscribers)
	q.mu.Unlock()

	for _, s := range subs {
		if q.isActive(s) {
			s.listener(slices.Clone(items))
		}
	}
}

func (q *Queue) isActive(s *subscriber) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return s.active
}
