// services/sched/ticker.go
package sched

import (
	"sync"
	"time"

	"growlight-go/errcode"
)

// Timer is the periodic tick source. Implementations call the attached
// callback from their own context (an ISR on hardware, a goroutine on the
// host); the callback must be short and non-blocking.
type Timer interface {
	Init() error
	// AttachPeriodic arms the timer to fire fn every period, repeating
	// forever. Arming failure is reported once; there are no retries.
	AttachPeriodic(period time.Duration, fn func()) error
	// SetPeriod reprograms the interval before the next expiry.
	SetPeriod(period time.Duration) error
}

// -----------------------------------------------------------------------------
// Host timer
// -----------------------------------------------------------------------------

// HostTimer drives the callback from a goroutine using a time.Timer.
type HostTimer struct {
	mu     sync.Mutex
	period time.Duration
	fn     func()
	t      *time.Timer
	done   chan struct{}
	armed  bool
}

func NewHostTimer() *HostTimer {
	return &HostTimer{done: make(chan struct{})}
}

func (h *HostTimer) Init() error { return nil }

func (h *HostTimer) AttachPeriodic(period time.Duration, fn func()) error {
	if period <= 0 || fn == nil {
		return &errcode.E{C: errcode.ArmingFailed, Op: "timer.attach"}
	}
	h.mu.Lock()
	if h.armed {
		h.mu.Unlock()
		return &errcode.E{C: errcode.ArmingFailed, Op: "timer.attach", Msg: "already armed"}
	}
	h.period = period
	h.fn = fn
	h.t = time.NewTimer(period)
	h.armed = true
	h.mu.Unlock()

	go h.loop()
	return nil
}

func (h *HostTimer) SetPeriod(period time.Duration) error {
	if period <= 0 {
		return &errcode.E{C: errcode.ArmingFailed, Op: "timer.set_period"}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.armed {
		return &errcode.E{C: errcode.ArmingFailed, Op: "timer.set_period", Msg: "not armed"}
	}
	h.period = period
	resetTimer(h.t, period)
	return nil
}

// Stop disarms the timer. Safe to call once.
func (h *HostTimer) Stop() {
	h.mu.Lock()
	if h.armed {
		h.armed = false
		close(h.done)
		h.t.Stop()
	}
	h.mu.Unlock()
}

func (h *HostTimer) loop() {
	for {
		h.mu.Lock()
		t := h.t
		h.mu.Unlock()

		select {
		case <-h.done:
			return
		case <-t.C:
			h.fn()
			h.mu.Lock()
			if h.armed {
				// fn may have reprogrammed the period already; rearm with
				// whatever is current.
				resetTimer(h.t, h.period)
			}
			h.mu.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Timer helpers
// -----------------------------------------------------------------------------

// resetTimer safely stops, drains, and resets a timer.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		drainTimer(t)
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
