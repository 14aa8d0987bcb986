package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock whose timers fire immediately and whose waits are recorded.
type FakeClock struct {
	NowFn   func() time.Time
	AfterFn func(d time.Duration) <-chan time.Time

	mu    sync.Mutex
	waits []time.Duration
}

func (f *FakeClock) Now() time.Time {
	if f.NowFn != nil {
		return f.NowFn()
	}
	return time.Now()
}

func (f *FakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.waits = append(f.waits, d)
	f.mu.Unlock()

	if f.AfterFn != nil {
		return f.AfterFn(d)
	}
	ch := make(chan time.Time, 1)
	ch <- f.Now().Add(d)
	return ch
}

// Waits returns every duration passed to After, in call order.
func (f *FakeClock) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.waits))
	copy(out, f.waits)
	return out
}

// Fixed returns a FakeClock frozen at t.
func Fixed(t time.Time) *FakeClock {
	return &FakeClock{NowFn: func() time.Time { return t }}
}
