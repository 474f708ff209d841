package timer

import (
	"context"
	"time"
)

// Timer is a one-second countdown owned by a single session. It does not
// read the clock: callers drive it with Tick, once per elapsed second.
// A Timer is not safe for concurrent use; the owning session serializes
// access.
type Timer struct {
	remaining int
	active    bool
	onTick    func(remaining int)
	onExpire  func()
}

// Start arms the timer with new callbacks. A duration of zero or less
// expires on the next tick.
func (t *Timer) Start(seconds int, onTick func(remaining int), onExpire func()) {
	t.onTick = onTick
	t.onExpire = onExpire
	t.Reset(seconds)
}

// Reset re-arms the timer with the existing callbacks.
func (t *Timer) Reset(seconds int) {
	t.remaining = max(seconds, 0)
	t.active = true
}

// Cancel stops the countdown. No further callbacks fire until the next
// Start or Reset.
func (t *Timer) Cancel() {
	t.active = false
}

// Tick advances the countdown by one second. onExpire fires exactly once,
// on the tick that reaches zero, after which the timer is inactive.
func (t *Timer) Tick() {
	if !t.active {
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.onTick != nil {
		t.onTick(t.remaining)
	}
	if t.remaining == 0 {
		t.active = false
		if t.onExpire != nil {
			// onExpire may re-arm the timer; nothing below this line may
			// touch timer state.
			t.onExpire()
		}
	}
}

func (t *Timer) Remaining() int { return t.remaining }

func (t *Timer) Active() bool { return t.active }

// Drive calls fn for every value received on ticks until ctx is cancelled
// or ticks is closed.
func Drive(ctx context.Context, ticks <-chan time.Time, fn func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			fn()
		}
	}
}

// Source produces a tick channel and a stop function. The default source
// ticks once per second.
type Source func() (<-chan time.Time, func())

func SecondTicker() (<-chan time.Time, func()) {
	ticker := time.NewTicker(time.Second)
	return ticker.C, ticker.Stop
}
