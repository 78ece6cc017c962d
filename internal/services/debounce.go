package services

import (
	"sync"
	"time"
)

const DefaultDebounceDelay = 450 * time.Millisecond

// Debouncer emits the last scheduled signature once no new signature has
// arrived for the delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	emit    func(signature string)
	timer   *time.Timer
	pending string
	gen     uint64
	stopped bool
}

func NewDebouncer(delay time.Duration, emit func(signature string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{delay: delay, emit: emit}
}

// Schedule restarts the quiescence window with signature as the value to emit.
func (d *Debouncer) Schedule(signature string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = signature
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A timer that lost the race with Stop/Schedule still runs; drop it.
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	signature := d.pending
	d.timer = nil
	d.mu.Unlock()

	d.emit(signature)
}

// Cancel drops any pending signature without emitting it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Stop cancels the pending signature and ignores later schedules.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.stopped = true
	d.gen++
}
