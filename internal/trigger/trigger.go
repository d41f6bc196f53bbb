// Package trigger provides a debounced, edge-coalescing rebuild signal.
//
// Any number of producers may call Arm. The trigger fires once a full quiet
// period has elapsed with no further Arm calls. A single consumer blocks in
// Wait and resets the signal with Clear.
package trigger

import (
	"context"
	"sync"
	"time"
)

// DefaultQuietPeriod is the quiet period used when none is configured.
const DefaultQuietPeriod = time.Second

// Trigger is a one-shot signal with hysteresis. The zero value is not usable;
// construct one with New and release it with Stop.
type Trigger struct {
	quiet time.Duration

	// armed holds at most one token: "an arm happened since the timer last looked".
	armed chan struct{}

	mu    sync.Mutex
	ready chan struct{} // closed while fired
	fired bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Trigger and starts its quiet-period timer goroutine.
func New(quiet time.Duration) *Trigger {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	t := &Trigger{
		quiet: quiet,
		armed: make(chan struct{}, 1),
		ready: make(chan struct{}),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go t.run()
	return t
}

// QuietPeriod returns the configured quiet period.
func (t *Trigger) QuietPeriod() time.Duration {
	return t.quiet
}

// Arm marks a change. It never blocks; repeated calls while a timer is already
// running only extend the wait.
func (t *Trigger) Arm() {
	select {
	case t.armed <- struct{}{}:
	default:
	}
}

// Wait blocks until the trigger fires or ctx is done.
func (t *Trigger) Wait(ctx context.Context) error {
	t.mu.Lock()
	ready := t.ready
	t.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear resets a fired trigger for the next cycle.
func (t *Trigger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		t.ready = make(chan struct{})
		t.fired = false
	}
}

// Fired reports whether the trigger has fired and not yet been cleared.
func (t *Trigger) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Stop terminates the timer goroutine and waits for it to exit. Pending arms
// are dropped. Stop is safe to call more than once.
func (t *Trigger) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

func (t *Trigger) run() {
	defer close(t.done)

	for {
		select {
		case <-t.stop:
			return
		case <-t.armed:
		}

		// Sleep a full quiet period; if another arm landed meanwhile, sleep again.
		for quiet := false; !quiet; {
			if !t.sleep() {
				return
			}
			select {
			case <-t.armed:
			default:
				quiet = true
			}
		}
		t.fire()
	}
}

// sleep waits one quiet period. It returns false if the trigger was stopped.
func (t *Trigger) sleep() bool {
	timer := time.NewTimer(t.quiet)
	defer timer.Stop()

	select {
	case <-t.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (t *Trigger) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.fired {
		close(t.ready)
		t.fired = true
	}
}
