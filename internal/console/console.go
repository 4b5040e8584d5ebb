package console

import (
	"sync"
)

// Console is the caller's handle on a started program.
type Console struct {
	// ID identifies the run in logs, metrics and history.
	ID string

	stdin  *Stdin
	cancel func()

	done chan struct{}
	once sync.Once
	err  error
}

// New returns a console feeding stdin; cancel stops the program.
func New(id string, stdin *Stdin, cancel func()) *Console {
	return &Console{ID: id, stdin: stdin, cancel: cancel, done: make(chan struct{})}
}

// InputStdin appends text to the program's standard input exactly as given.
// Text sent after the program has finished is discarded.
func (c *Console) InputStdin(text string) {
	_, _ = c.stdin.Write([]byte(text))
}

// Done is closed after the program has finished and all its output has been delivered.
func (c *Console) Done() <-chan struct{} { return c.done }

// Wait blocks until Done and returns the program's result.
func (c *Console) Wait() error {
	<-c.done
	return c.err
}

// Cancel asks the program to stop. Wait reports the outcome.
func (c *Console) Cancel() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Finish records the result and releases waiters. Only the first call counts.
func (c *Console) Finish(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}
