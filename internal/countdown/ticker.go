package countdown

import (
	"sync"
	"time"

	"github.com/pkordes/trip-countdown/internal/domain"
)

// DefaultInterval is the refresh period of a Ticker.
const DefaultInterval = time.Second

// Ticker recomputes the countdown on a fixed interval while a target is set.
//
// A Ticker holds at most one refresh loop. SetTarget replaces the loop, a nil
// target leaves none running, and Stop releases it. After Stop or SetTarget
// return, the previous loop has exited and will not call onTick again.
type Ticker struct {
	interval time.Duration
	now      func() time.Time
	onTick   func(domain.CountdownTime)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTicker constructs an idle Ticker. A zero interval means DefaultInterval
// and a nil now means time.Now.
func NewTicker(interval time.Duration, now func() time.Time, onTick func(domain.CountdownTime)) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Ticker{interval: interval, now: now, onTick: onTick}
}

// SetTarget tears down any running loop and, if target is non-nil, emits the
// current countdown immediately and starts a new loop for it.
func (t *Ticker) SetTarget(target *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	if target == nil {
		return
	}

	tgt := *target
	t.onTick(Remaining(&tgt, t.now()))

	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop, t.done = stop, done

	go t.run(tgt, stop, done)
}

// Stop releases the running loop, if any. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Running reports whether a refresh loop is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Ticker) stopLocked() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop, t.done = nil, nil
}

func (t *Ticker) run(target time.Time, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			// Re-check stop so a tick racing with teardown is not delivered.
			select {
			case <-stop:
				return
			default:
			}
			t.onTick(Remaining(&target, t.now()))
		}
	}
}
