package toast

import (
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock fires scheduled callbacks synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	seq      int
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.deadline.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].deadline.Equal(due[j].deadline) {
				return due[i].seq < due[j].seq
			}
			return due[i].deadline.Before(due[j].deadline)
		})
		next := due[0]
		next.fired = true
		c.now = next.deadline
		c.mu.Unlock()

		next.fn()
	}
}

// recorder captures every snapshot a listener receives.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]Notification
}

func (r *recorder) listen(ns []Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, ns)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) last() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func newTestQueue(t *testing.T) (*Queue, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return New(WithClock(clock)), clock
}

func TestQueue_EnqueueBroadcastsInOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	rec := &recorder{}
	q.Subscribe(rec.listen)

	titles := []string{"first", "second", "third", "fourth"}
	for i, title := range titles {
		_, err := q.Enqueue(Request{Title: title})
		require.NoError(t, err)

		got := rec.last()
		require.Len(t, got, i+1)
		for j := 0; j <= i; j++ {
			assert.Equal(t, titles[j], got[j].Title)
			assert.True(t, got[j].Visible)
		}
	}
	assert.Equal(t, len(titles), rec.count())
}

func TestQueue_EnqueueDefaults(t *testing.T) {
	q, clock := newTestQueue(t)

	n, err := q.Enqueue(Request{Title: "Saved"})
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, KindDefault, n.Kind)
	assert.Equal(t, DefaultDuration, n.Duration)
	assert.True(t, n.Visible)
	assert.Equal(t, clock.Now(), n.CreatedAt)
}

func TestQueue_WithDefaultDuration(t *testing.T) {
	clock := newFakeClock()
	q := New(WithClock(clock), WithDefaultDuration(5*time.Second))

	n, err := q.Enqueue(Request{Title: "Saved"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, n.Duration)

	clock.Advance(3 * time.Second)
	require.Len(t, q.Snapshot(), 1)
	assert.True(t, q.Snapshot()[0].Visible)
}

func TestQueue_Lifecycle(t *testing.T) {
	q, clock := newTestQueue(t)
	rec := &recorder{}
	q.Subscribe(rec.listen)

	_, err := q.Enqueue(Request{Title: "Saved", Kind: KindSuccess, Duration: time.Second})
	require.NoError(t, err)

	got := rec.last()
	require.Len(t, got, 1)
	assert.Equal(t, "Saved", got[0].Title)
	assert.Equal(t, KindSuccess, got[0].Kind)
	assert.True(t, got[0].Visible)

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "fade must not happen before the duration elapses")

	clock.Advance(time.Millisecond)
	got = rec.last()
	require.Len(t, got, 1)
	assert.False(t, got[0].Visible)
	assert.Equal(t, 2, rec.count())

	clock.Advance(299 * time.Millisecond)
	assert.Equal(t, 2, rec.count(), "removal must wait for the fade grace")

	clock.Advance(time.Millisecond)
	assert.Empty(t, rec.last())
	assert.Equal(t, 3, rec.count())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_IndependentTimers(t *testing.T) {
	q, clock := newTestQueue(t)

	short, err := q.Enqueue(Request{Title: "short", Duration: time.Second})
	require.NoError(t, err)
	long, err := q.Enqueue(Request{Title: "long", Duration: 5 * time.Second})
	require.NoError(t, err)

	clock.Advance(1300 * time.Millisecond)

	got := q.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, long.ID, got[0].ID)
	assert.True(t, got[0].Visible)
	assert.NotEqual(t, short.ID, got[0].ID)

	clock.Advance(4 * time.Second)
	require.Len(t, q.Snapshot(), 0)
}

func TestQueue_DistinctIDsForIdenticalTitles(t *testing.T) {
	q, _ := newTestQueue(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := q.Enqueue(Request{Title: "same"})
		require.NoError(t, err)
		assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	}
}

func TestQueue_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty title", Request{Title: ""}},
		{"negative duration", Request{Title: "x", Duration: -time.Second}},
		{"unknown kind", Request{Title: "x", Kind: Kind("fatal")}},
		{"longer than a day", Request{Title: "x", Duration: MaxDuration + time.Nanosecond}},
		{"max int duration", Request{Title: "x", Duration: time.Duration(math.MaxInt64)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := newTestQueue(t)
			rec := &recorder{}
			q.Subscribe(rec.listen)

			_, err := q.Enqueue(tt.req)
			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, 0, q.Len())
			assert.Equal(t, 0, rec.count(), "a rejected request must not broadcast")
		})
	}
}

func TestQueue_LongestDurationFadesBeforeRemoval(t *testing.T) {
	q, clock := newTestQueue(t)
	rec := &recorder{}
	q.Subscribe(rec.listen)

	_, err := q.Enqueue(Request{Title: "pinned", Duration: MaxDuration})
	require.NoError(t, err)

	clock.Advance(MaxDuration - time.Millisecond)
	require.Equal(t, 1, rec.count())

	clock.Advance(time.Millisecond)
	require.Equal(t, 2, rec.count())
	require.Len(t, rec.last(), 1)
	assert.False(t, rec.last()[0].Visible)

	clock.Advance(FadeGrace)
	assert.Equal(t, 3, rec.count())
	assert.Empty(t, rec.last())
}

func TestQueue_LongDescriptionIsAccepted(t *testing.T) {
	q, _ := newTestQueue(t)

	n, err := q.Enqueue(Request{Title: "Saved", Description: strings.Repeat("a", 4096)})
	require.NoError(t, err)
	assert.Len(t, n.Description, 4096)
}

func TestQueue_ListenerMayUnsubscribeItself(t *testing.T) {
	q, _ := newTestQueue(t)
	other := &recorder{}

	calls := 0
	var unsubscribe func()
	unsubscribe = q.Subscribe(func([]Notification) {
		calls++
		unsubscribe()
	})
	q.Subscribe(other.listen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := q.Enqueue(Request{Title: "one"})
		assert.NoError(t, err)
		_, err = q.Enqueue(Request{Title: "two"})
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a self-unsubscribing listener")
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other.count())
}

func TestQueue_Unsubscribe(t *testing.T) {
	q, clock := newTestQueue(t)
	rec := &recorder{}
	unsubscribe := q.Subscribe(rec.listen)

	_, err := q.Enqueue(Request{Title: "one", Duration: time.Second})
	require.NoError(t, err)
	require.Equal(t, 1, rec.count())

	unsubscribe()
	unsubscribe()

	_, err = q.Enqueue(Request{Title: "two"})
	require.NoError(t, err)
	clock.Advance(10 * time.Second)

	assert.Equal(t, 1, rec.count())
}

func TestQueue_SubscribersReceiveIdenticalSnapshots(t *testing.T) {
	q, _ := newTestQueue(t)
	a, b := &recorder{}, &recorder{}
	q.Subscribe(a.listen)
	q.Subscribe(b.listen)

	n, err := q.Enqueue(Request{Title: "Saved", Description: "profile updated"})
	require.NoError(t, err)

	require.Equal(t, 1, a.count())
	require.Equal(t, 1, b.count())
	assert.Equal(t, a.last(), b.last())
	assert.Equal(t, n, a.last()[0])
}

func TestQueue_SnapshotsAreCopies(t *testing.T) {
	q, _ := newTestQueue(t)
	a, b := &recorder{}, &recorder{}
	q.Subscribe(a.listen)
	q.Subscribe(b.listen)

	_, err := q.Enqueue(Request{Title: "original"})
	require.NoError(t, err)

	a.last()[0].Title = "mutated"

	assert.Equal(t, "original", b.last()[0].Title)
	assert.Equal(t, "original", q.Snapshot()[0].Title)
}

func TestQueue_LateSubscriberMissesEarlierChanges(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(Request{Title: "before"})
	require.NoError(t, err)

	rec := &recorder{}
	q.Subscribe(rec.listen)
	assert.Equal(t, 0, rec.count())

	_, err = q.Enqueue(Request{Title: "after"})
	require.NoError(t, err)
	require.Len(t, rec.last(), 2)
}

func TestQueue_Dismiss(t *testing.T) {
	q, clock := newTestQueue(t)
	rec := &recorder{}
	q.Subscribe(rec.listen)

	keep, err := q.Enqueue(Request{Title: "keep", Duration: time.Minute})
	require.NoError(t, err)
	drop, err := q.Enqueue(Request{Title: "drop", Duration: time.Second})
	require.NoError(t, err)

	assert.True(t, q.Dismiss(drop.ID))
	assert.False(t, q.Dismiss(drop.ID))
	assert.False(t, q.Dismiss("unknown"))

	got := rec.last()
	require.Len(t, got, 1)
	assert.Equal(t, keep.ID, got[0].ID)
	broadcasts := rec.count()

	// The cancelled timers of the dismissed entry must never fire.
	clock.Advance(2 * time.Second)
	assert.Equal(t, broadcasts, rec.count())
}

func TestQueue_Clear(t *testing.T) {
	q, clock := newTestQueue(t)
	rec := &recorder{}
	q.Subscribe(rec.listen)

	for _, title := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(Request{Title: title, Duration: time.Second})
		require.NoError(t, err)
	}

	q.Clear()
	assert.Empty(t, rec.last())
	assert.Equal(t, 4, rec.count())

	clock.Advance(time.Minute)
	assert.Equal(t, 4, rec.count())

	q.Clear()
	assert.Equal(t, 4, rec.count(), "clearing an empty queue does not broadcast")
}

func TestQueue_TransitionForRemovedIDIsNoop(t *testing.T) {
	q, _ := newTestQueue(t)
	rec := &recorder{}
	q.Subscribe(rec.listen)

	q.fade("gone")
	q.remove("gone")

	assert.Equal(t, 0, rec.count())
}

func TestQueue_Helpers(t *testing.T) {
	q, _ := newTestQueue(t)

	q.Success("Saved", "")
	q.Error("Failed", "boom")
	q.Warning("Careful", "")
	q.Info("Hello", "")
	q.Info("", "dropped")

	got := q.Snapshot()
	require.Len(t, got, 4)
	assert.Equal(t, []Kind{KindSuccess, KindError, KindWarning, KindDefault},
		[]Kind{got[0].Kind, got[1].Kind, got[2].Kind, got[3].Kind})
	assert.Equal(t, "boom", got[1].Description)
}

func TestQueue_RealClock(t *testing.T) {
	q := New()
	done := make(chan struct{})
	var once sync.Once
	q.Subscribe(func(ns []Notification) {
		if len(ns) == 0 {
			once.Do(func() { close(done) })
		}
	})

	start := time.Now()
	_, err := q.Enqueue(Request{Title: "quick", Duration: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case <-done:
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond+FadeGrace)
	case <-time.After(5 * time.Second):
		t.Fatal("notification was never removed")
	}
}
