// Package timer implements the per-attempt countdown.
//
// Remaining time is always derived from the attempt's absolute start time and
// limit, so a countdown rebuilt after a reconnect picks up where the previous
// one would have been.
package timer

import (
	"sync"
	"time"
)

// TickInterval is the countdown granularity
const TickInterval = time.Second

// Clock is the time source used by timers
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// RealClock returns a Clock backed by the time package
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Remaining returns the whole seconds left on a countdown of limitSeconds
// that started at start: max(0, limit - floor(secondsSince(start))).
// A start time in the future counts as no time elapsed. Unlimited
// countdowns (limitSeconds <= 0) report 0.
func Remaining(start time.Time, limitSeconds int, now time.Time) int {
	if limitSeconds <= 0 {
		return 0
	}
	elapsed := int(now.Sub(start) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(0, limitSeconds-elapsed)
}

// Timer is a one-shot countdown. It is not restartable.
type Timer struct {
	clock   Clock
	start   time.Time
	limit   int
	running bool

	ticks   chan int
	expired chan struct{}
	stop    chan struct{}
	done    chan struct{}

	stopOnce   sync.Once
	expireOnce sync.Once
	finishOnce sync.Once
}

// Start begins a countdown of totalSeconds from now. Zero means no limit:
// the timer never ticks and never expires, it only ends on Cancel.
func Start(clock Clock, totalSeconds int) *Timer {
	return Resume(clock, clock.Now(), totalSeconds)
}

// Resume rebuilds a countdown from a stored start time. If no time is left
// the expiry signal fires immediately without any tick.
func Resume(clock Clock, startTime time.Time, limitSeconds int) *Timer {
	if limitSeconds < 0 {
		limitSeconds = 0
	}

	t := &Timer{
		clock:   clock,
		start:   startTime,
		limit:   limitSeconds,
		ticks:   make(chan int, 1),
		expired: make(chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if limitSeconds == 0 {
		return t
	}

	if Remaining(startTime, limitSeconds, clock.Now()) <= 0 {
		t.fire()
		t.finish()
		return t
	}

	t.running = true
	ticker := clock.NewTicker(TickInterval)
	go t.run(ticker)
	return t
}

func (t *Timer) run(ticker Ticker) {
	defer t.finish()
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C():
			remaining := Remaining(t.start, t.limit, t.clock.Now())
			if remaining <= 0 {
				t.fire()
				return
			}
			t.publish(remaining)
		}
	}
}

// publish hands the latest value to the consumer, replacing a stale unread one
func (t *Timer) publish(remaining int) {
	select {
	case t.ticks <- remaining:
		return
	default:
	}
	select {
	case <-t.ticks:
	default:
	}
	select {
	case t.ticks <- remaining:
	default:
	}
}

func (t *Timer) fire() {
	t.expireOnce.Do(func() { close(t.expired) })
}

func (t *Timer) finish() {
	t.finishOnce.Do(func() {
		close(t.ticks)
		close(t.done)
	})
}

// Ticks yields the remaining seconds once per second while the countdown is
// above zero. The channel is closed when the timer stops.
func (t *Timer) Ticks() <-chan int {
	return t.ticks
}

// Expired is closed exactly once when the countdown reaches zero. It is never
// closed for cancelled or unlimited timers.
func (t *Timer) Expired() <-chan struct{} {
	return t.expired
}

// Done is closed once the timer has stopped for any reason
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the countdown without an expiry signal. Safe to call repeatedly
// and after expiry.
func (t *Timer) Cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
	if !t.running {
		t.finish()
	}
}

// Limited reports whether the countdown has a limit
func (t *Timer) Limited() bool {
	return t.limit > 0
}

// Limit returns the configured limit in seconds
func (t *Timer) Limit() int {
	return t.limit
}

// Remaining returns the seconds left right now
func (t *Timer) Remaining() int {
	select {
	case <-t.expired:
		return 0
	default:
	}
	return Remaining(t.start, t.limit, t.clock.Now())
}

// IsExpired reports whether the expiry signal has fired
func (t *Timer) IsExpired() bool {
	select {
	case <-t.expired:
		return true
	default:
		return false
	}
}
