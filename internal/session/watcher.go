package session

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/gtdxp-os/internal/auth"
)

// CheckState represents the outcome of the most recent session check.
type CheckState int

const (
	CheckIdle CheckState = iota
	CheckRunning
	CheckFailed
)

func (s CheckState) String() string {
	switch s {
	case CheckRunning:
		return "running"
	case CheckFailed:
		return "failed"
	default:
		return "ok"
	}
}

// CheckResultMsg is a tea.Msg sent when a session check completes.
type CheckResultMsg struct {
	User *auth.User
	Err  error
	// Expired is set when the provider rejected the session and it could
	// not be refreshed.
	Expired bool
}

// checkTimeout is the maximum time allowed for a single check.
const checkTimeout = 15 * time.Second

// DefaultCheckInterval is used when the configured interval is not positive.
const DefaultCheckInterval = 5 * time.Minute

// Watcher re-validates the session in the background and reports each
// result to the Bubble Tea runtime.
type Watcher struct {
	manager   *Manager
	interval  time.Duration
	resultCh  chan CheckResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	listening bool
	state     CheckState
	lastCheck time.Time
}

// NewWatcher creates a watcher for the given manager.
func NewWatcher(m *Manager, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Watcher{
		manager:   m,
		interval:  interval,
		resultCh:  make(chan CheckResultMsg, 4),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the check loop. The first call also returns the command
// that waits for results; the receiver keeps that chain alive with
// WaitForNextResult across later restarts. Starting a running watcher is
// a no-op.
func (w *Watcher) Start() tea.Cmd {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	stopCh := make(chan struct{})
	w.stopCh = stopCh
	first := !w.listening
	w.listening = true
	w.mu.Unlock()

	go w.loop(stopCh)

	if !first {
		return nil
	}
	return w.waitForResult()
}

// Stop halts the check loop. It can be started again later.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

// Running reports whether the loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// CheckNow asks the loop for an immediate check.
func (w *Watcher) CheckNow() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
		// A check is already pending.
	}
}

// State returns the state of the most recent check and when it finished.
func (w *Watcher) State() (CheckState, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.lastCheck
}

func (w *Watcher) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.check()
		case <-w.triggerCh:
			w.check()
		}
	}
}

// check validates the session once and publishes the result.
func (w *Watcher) check() {
	if !w.manager.SignedIn() {
		return
	}
	w.setState(CheckRunning)

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	user, err := w.manager.Validate(ctx)
	if err != nil {
		w.setState(CheckFailed)
		w.sendResult(CheckResultMsg{Err: err, Expired: auth.IsUnauthorized(err)})
		return
	}

	w.setState(CheckIdle)
	w.sendResult(CheckResultMsg{User: user})
}

func (w *Watcher) setState(state CheckState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = state
	if state != CheckRunning {
		w.lastCheck = time.Now()
	}
}

// sendResult publishes without blocking; a full channel drops the result.
func (w *Watcher) sendResult(msg CheckResultMsg) {
	select {
	case w.resultCh <- msg:
	default:
	}
}

func (w *Watcher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		return <-w.resultCh
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next check
// result. Call it after handling a CheckResultMsg to keep listening.
func (w *Watcher) WaitForNextResult() tea.Cmd {
	return w.waitForResult()
}
