// Package console mediates a running program's I/O: a single callback
// goroutine, line-splitting output writers and a blocking stdin pipe.
package console

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Dispatcher runs posted callbacks one at a time, in order, on its own
// goroutine. The queue is unbounded so producers never block.
type Dispatcher struct {
	logger *log.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the callback goroutine. Call Close to stop it.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{logger: logger, done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.loop()
	return d
}

// Post enqueues fn. It reports false, dropping fn, once Close has been called.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.queue = append(d.queue, fn)
	d.cond.Signal()
	return true
}

// Flush blocks until every callback posted before it has run.
func (d *Dispatcher) Flush() {
	ran := make(chan struct{})
	if !d.Post(func() { close(ran) }) {
		<-d.done
		return
	}
	select {
	case <-ran:
	case <-d.done:
	}
}

// Close stops accepting callbacks, runs the ones already queued and waits
// for the dispatcher goroutine to exit. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.run(fn)
	}
}

// run isolates the dispatcher from a panicking callback.
func (d *Dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("callback panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
