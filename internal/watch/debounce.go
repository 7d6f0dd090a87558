package watch

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of events per path and calls flush once the
// path has been quiet for delay. Flushes admitted before Stop are tracked so
// Wait can block until they return.
type debouncer struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	running sync.WaitGroup

	delay time.Duration
	flush func(path string)
}

func newDebouncer(delay time.Duration, flush func(path string)) *debouncer {
	if delay < 0 {
		delay = 0
	}
	return &debouncer{
		timers: make(map[string]*time.Timer),
		delay:  delay,
		flush:  flush,
	}
}

// Trigger schedules a flush for path, resetting any pending timer. With a
// zero delay the flush runs synchronously.
func (d *debouncer) Trigger(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.delay == 0 {
		d.running.Add(1)
		d.mu.Unlock()
		d.run(path)
		return
	}
	if timer, ok := d.timers[path]; ok {
		timer.Stop()
	}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.fire(path)
	})
	d.mu.Unlock()
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.timers, path)
	d.running.Add(1)
	d.mu.Unlock()
	d.run(path)
}

func (d *debouncer) run(path string) {
	defer d.running.Done()
	d.flush(path)
}

// Stop cancels every pending flush.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}

// Wait blocks until every flush that started before Stop has returned.
func (d *debouncer) Wait() {
	d.running.Wait()
}

// Pending returns the number of paths waiting to flush.
func (d *debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
