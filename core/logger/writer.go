package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// sink is one buffered output. A sink that fails once is skipped from then on.
type sink struct {
	buf *bufio.Writer
	err error
}

// asyncWriter fans log lines out to its sinks from a single goroutine.
// Logging keeps working while at least one sink is healthy.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}

	closeMu sync.RWMutex
	closed  bool

	sinkMu sync.Mutex
	sinks  []*sink
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, w := range writers {
		if w != nil {
			aw.sinks = append(aw.sinks, &sink{buf: bufio.NewWriterSize(w, bufSize)})
		}
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				w.flushAll()
				return
			}
			w.writeAll(data)
		case ack := <-w.flushReq:
			w.drain()
			ack <- w.flushAll()
		}
	}
}

// drain writes whatever is already queued without waiting for more.
func (w *asyncWriter) drain() {
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				return
			}
			w.writeAll(data)
		default:
			return
		}
	}
}

// Write copies p and queues it. It blocks while the queue is full and fails
// once every sink is broken or the writer is closed.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := w.broken(); err != nil {
		return err
	}
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	w.closeMu.RLock()
	closed := w.closed
	w.closeMu.RUnlock()
	if closed {
		return w.sinkErrors()
	}
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
		return <-ack
	case <-w.done:
		return w.sinkErrors()
	}
}

// Close drains the queue and returns the errors of failed sinks.
func (w *asyncWriter) Close() error {
	w.closeMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.closeMu.Unlock()
	<-w.done
	return w.sinkErrors()
}

func (w *asyncWriter) writeAll(p []byte) {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	for _, s := range w.sinks {
		if s.err != nil {
			continue
		}
		if _, err := s.buf.Write(p); err != nil {
			s.err = err
			continue
		}
		s.err = s.buf.Flush()
	}
}

func (w *asyncWriter) flushAll() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	for _, s := range w.sinks {
		if s.err == nil {
			s.err = s.buf.Flush()
		}
	}
	return w.joinLocked()
}

// broken reports an error only when no sink is left to write to.
func (w *asyncWriter) broken() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	for _, s := range w.sinks {
		if s.err == nil {
			return nil
		}
	}
	return w.joinLocked()
}

func (w *asyncWriter) sinkErrors() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	return w.joinLocked()
}

func (w *asyncWriter) joinLocked() error {
	var errs []error
	for _, s := range w.sinks {
		if s.err != nil {
			errs = append(errs, s.err)
		}
	}
	return errors.Join(errs...)
}
