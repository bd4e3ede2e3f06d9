package testutil

import (
	"bytes"
	"sync"
	"time"
)

// MockClock is a queue.Clock that only moves when told to.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock returns a clock reading start, or the wall time if start is zero.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// MockWriter collects what sinks and loggers write. It can stand in for a
// slow or failing destination.
type MockWriter struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	delay time.Duration
	err   error
}

func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write sleeps for the configured delay, then fails with the configured
// error or appends p. Writes are serialized.
func (w *MockWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	if w.err != nil {
		return 0, w.err
	}
	return w.buf.Write(p)
}

// String returns everything written so far.
func (w *MockWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// SetWriteDelay makes every later Write take at least d.
func (w *MockWriter) SetWriteDelay(d time.Duration) {
	w.mu.Lock()
	w.delay = d
	w.mu.Unlock()
}

// SetAlwaysError makes every later Write fail with err.
func (w *MockWriter) SetAlwaysError(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}
