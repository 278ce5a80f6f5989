package appstate

import (
	"sync"
	"time"
)

// Debouncer delays a callback until no new Trigger arrived for delay. The
// callback is delivered onto the loop; a newer Trigger or a Cancel makes any
// pending delivery a no-op.
type Debouncer struct {
	loop  *Loop
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(loop *Loop, delay time.Duration) *Debouncer {
	return &Debouncer{loop: loop, delay: delay}
}

func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.loop.Post(func() {
			// the timer may have fired after a newer Trigger stopped it
			if d.current(gen) {
				fn()
			}
		})
	})
}

func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a callback is armed and not yet delivered.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return false
	}
	d.timer = nil
	return true
}
