// Package timertest provides a manually driven clock for countdown tests.
package timertest

import (
	"sync"
	"time"

	"github.com/terra-clan/simulex-engine/internal/timer"
)

// Clock is a timer.Clock whose time only moves on Advance or Set
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*Ticker
}

// NewClock returns a clock frozen at now
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now implements timer.Clock
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker implements timer.Clock
func (c *Clock) NewTicker(d time.Duration) timer.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &Ticker{
		c:      make(chan time.Time, 1),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Tickers returns the number of tickers that have not been stopped
func (c *Clock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Advance moves the clock forward and fires every ticker deadline passed.
// Like time.Ticker, ticks nobody has read yet are dropped.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*Ticker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fireUntil(now)
	}
}

// Set jumps the clock to an absolute time without firing tickers
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Ticker is the fake ticker handed out by Clock
type Ticker struct {
	mu      sync.Mutex
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

// C implements timer.Ticker
func (t *Ticker) C() <-chan time.Time {
	return t.c
}

// Stop implements timer.Ticker
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *Ticker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *Ticker) fireUntil(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.stopped && !t.next.After(now) {
		select {
		case t.c <- t.next:
		default:
		}
		t.next = t.next.Add(t.period)
	}
}
