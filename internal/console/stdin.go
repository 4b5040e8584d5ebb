package console

import (
	"bytes"
	"io"
	"sync"
)

// Stdin is a blocking byte queue feeding the program's System.in.
type Stdin struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

// NewStdin returns an empty, open queue.
func NewStdin() *Stdin {
	s := &Stdin{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Write appends p verbatim. After Close the bytes are dropped.
func (s *Stdin) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	s.buf.Write(p)
	s.cond.Broadcast()
	return len(p), nil
}

// Read blocks until input is available and returns io.EOF once closed.
func (s *Stdin) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.buf.Len() == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return 0, io.EOF
	}
	return s.buf.Read(p)
}

func (s *Stdin) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buf.Reset()
	s.cond.Broadcast()
	return nil
}
