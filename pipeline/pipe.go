// Package pipeline is the real-time producer/consumer core: the bounded
// sample pipe between the sampling and delivery threads, the sampling
// thread itself, and the delivery thread that merges audio, motion and
// battery state into fixed combined records for the radio.
package pipeline

import (
	"sync"
	"time"
)

// Pipe is a fixed-capacity byte queue with blocking writes and
// bounded-wait reads. It is the only synchronization point between the
// sampling thread and the delivery thread: Put blocks while the pipe is
// full (backpressure onto acquisition cadence), Get waits at most its
// timeout for a minimum byte count.
//
// A Put copies its whole record under one critical section, so a
// single-record-per-Put writer can never expose a torn record to the
// reader as long as capacity is a multiple of the record size.
type Pipe struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	buf      []byte
	read     int
	write    int
	count    int
}

// NewPipe creates a pipe holding capacity bytes.
func NewPipe(capacity int) *Pipe {
	p := &Pipe{buf: make([]byte, capacity)}
	p.notFull = sync.NewCond(&p.mu)
	p.notEmpty = sync.NewCond(&p.mu)
	return p
}

// Cap returns the pipe's byte capacity.
func (p *Pipe) Cap() int { return len(p.buf) }

// Len returns the number of bytes currently queued.
func (p *Pipe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Put appends rec, blocking until the whole record fits. Records larger
// than the pipe's capacity would block forever and must not be written.
func (p *Pipe) Put(rec []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf)-p.count < len(rec) {
		p.notFull.Wait()
	}
	for _, b := range rec {
		p.buf[p.write] = b
		p.write = (p.write + 1) % len(p.buf)
	}
	p.count += len(rec)
	p.notEmpty.Broadcast()
}

// Get waits up to timeout for at least min bytes, then copies whatever
// is available (up to len(dst)) into dst and returns the count. When
// the wait elapses it still drains what is queued, so a short read is
// visible to the caller rather than silently discarded.
func (p *Pipe) Get(dst []byte, min int, timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.count < min {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		p.waitTimeout(p.notEmpty, remaining)
	}
	n := p.count
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = p.buf[p.read]
		p.read = (p.read + 1) % len(p.buf)
	}
	p.count -= n
	if n > 0 {
		p.notFull.Broadcast()
	}
	return n
}

// waitTimeout waits on c for at most d. The caller holds p.mu. Spurious
// wakeups are fine: every caller re-checks its predicate in a loop.
func (p *Pipe) waitTimeout(c *sync.Cond, d time.Duration) {
	t := time.AfterFunc(d, func() {
		p.mu.Lock()
		c.Broadcast()
		p.mu.Unlock()
	})
	defer t.Stop()
	c.Wait()
}
