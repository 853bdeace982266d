package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/gtdxp-os/internal/model"
	"github.com/nhle/gtdxp-os/internal/toast"
)

// recorderBuffer is how many pending writes the recorder holds before it
// starts dropping history.
const recorderBuffer = 64

type recordOp struct {
	record    *model.NotificationRecord
	dismissID string
	at        time.Time
}

// Recorder keeps the toast history in sync with a queue. It subscribes to
// the queue, compares each snapshot with the previous one and writes the
// differences from its own goroutine so the queue is never held up by disk.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	seen  map[string]struct{}
	ops   chan recordOp
	unsub func()
	done  chan struct{}
	once  sync.Once
}

// NewRecorder starts recording q into s. Call Close to stop.
func NewRecorder(s Store, q *toast.Queue, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Recorder{
		store:  s,
		logger: logger,
		now:    time.Now,
		seen:   make(map[string]struct{}),
		ops:    make(chan recordOp, recorderBuffer),
		done:   make(chan struct{}),
	}
	go r.run()
	r.unsub = q.Subscribe(r.observe)
	return r
}

// observe is the queue listener. It runs under the queue's lock and only
// hands work to the writer goroutine.
func (r *Recorder) observe(snapshot []toast.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]struct{}, len(snapshot))
	for _, n := range snapshot {
		current[n.ID] = struct{}{}
		if _, ok := r.seen[n.ID]; ok {
			continue
		}
		r.enqueue(recordOp{record: &model.NotificationRecord{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
			Kind:        string(n.Kind),
			DurationMS:  n.Duration.Milliseconds(),
			CreatedAt:   n.CreatedAt,
		}})
	}
	for id := range r.seen {
		if _, ok := current[id]; !ok {
			r.enqueue(recordOp{dismissID: id, at: r.now()})
		}
	}
	r.seen = current
}

func (r *Recorder) enqueue(op recordOp) {
	select {
	case r.ops <- op:
	default:
		r.logger.Warn("toast history buffer full, dropping write")
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for op := range r.ops {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		if op.record != nil {
			err = r.store.RecordNotification(ctx, *op.record)
		} else {
			err = r.store.MarkNotificationDismissed(ctx, op.dismissID, op.at)
		}
		cancel()
		if err != nil {
			r.logger.Warn("writing toast history", "error", err)
		}
	}
}

// Close unsubscribes from the queue and waits for pending writes.
func (r *Recorder) Close() {
	r.once.Do(func() {
		r.unsub()
		r.mu.Lock()
		close(r.ops)
		r.mu.Unlock()
		<-r.done
	})
}
