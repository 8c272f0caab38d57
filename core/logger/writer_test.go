package logger

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestAsyncWriterKeepsHealthySinks(t *testing.T) {
	boom := errors.New("disk full")
	var out bytes.Buffer
	w := newAsyncWriter([]io.Writer{failingWriter{err: boom}, &out}, 16)

	for _, line := range []string{"one\n", "two\n"} {
		if err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write %q: %v", line, err)
		}
	}
	if err := w.Close(); !errors.Is(err, boom) {
		t.Fatalf("Close should report the broken sink, got %v", err)
	}
	if out.String() != "one\ntwo\n" {
		t.Fatalf("healthy sink got %q", out.String())
	}
}

func TestAsyncWriterFailsWhenAllSinksBroken(t *testing.T) {
	boom := errors.New("gone")
	w := newAsyncWriter([]io.Writer{failingWriter{err: boom}}, 16)
	_ = w.Write([]byte("first\n"))
	if err := w.Flush(); !errors.Is(err, boom) {
		t.Fatalf("Flush error = %v", err)
	}
	if err := w.Write([]byte("second\n")); !errors.Is(err, boom) {
		t.Fatalf("Write after every sink failed = %v", err)
	}
	_ = w.Close()
}

func TestAsyncWriterClosed(t *testing.T) {
	var out bytes.Buffer
	w := newAsyncWriter([]io.Writer{&out}, 16)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("Write after Close = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush after Close = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}
