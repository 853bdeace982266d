package toast

import "time"

// Timer is a scheduled callback that can be cancelled before it fires.
type Timer interface {
	Stop() bool
}

// Clock schedules the deferred lifecycle transitions of a queue.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// systemClock is the wall-clock implementation backed by time.AfterFunc.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
