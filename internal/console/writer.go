package console

import (
	"bytes"
	"strings"
	"sync"
)

// Channel tells stdout and stderr lines apart.
type Channel int

const (
	Stdout Channel = iota
	Stderr
)

func (c Channel) String() string {
	if c == Stderr {
		return "stderr"
	}
	return "stdout"
}

// LineWriter splits written bytes into lines and delivers each one without
// its terminator. A partial last line is delivered by Close.
type LineWriter struct {
	channel Channel
	deliver func(line string, ch Channel)

	mu     sync.Mutex
	buf    []byte
	closed bool
}

func NewLineWriter(ch Channel, deliver func(line string, ch Channel)) *LineWriter {
	return &LineWriter{channel: ch, deliver: deliver}
}

// Write never fails; output written after Close is dropped.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return len(p), nil
	}
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Close flushes a pending partial line. Later calls do nothing.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
	return nil
}

func (w *LineWriter) emit(line string) {
	w.deliver(strings.TrimSuffix(line, "\r"), w.channel)
}
