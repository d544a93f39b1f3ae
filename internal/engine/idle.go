package engine

import "time"

type (
	// Scheduler defers a task until the host is idle. Implementations
	// must never block the caller of Schedule.
	Scheduler interface {
		Schedule(task func())
	}

	// idleScheduler runs tasks when the host signals idleness on the
	// notification channel, or after the fallback delay when no signal
	// arrives (or none is wired at all).
	idleScheduler struct {
		idle     <-chan struct{}
		fallback time.Duration
	}

	// ImmediateScheduler runs tasks synchronously; useful in tests and
	// for hosts that have no meaningful idle period.
	ImmediateScheduler struct{}
)

// NewIdleScheduler creates a Scheduler which waits for a signal on the idle
// channel provided before running a task. The fallback delay bounds the
// wait; a nil idle channel means the fallback timer alone decides.
func NewIdleScheduler(idle <-chan struct{}, fallback time.Duration) Scheduler {
	return &idleScheduler{idle: idle, fallback: fallback}
}

func (scheduler *idleScheduler) Schedule(task func()) {
	go func() {
		timer := time.NewTimer(scheduler.fallback)
		defer timer.Stop()

		select {
		case <-scheduler.idle:
		case <-timer.C:
		}

		task()
	}()
}

func (ImmediateScheduler) Schedule(task func()) { task() }
