// Package ratelimit implements the leaky bucket that gates catalog searches.
//
// The bucket starts with one token per allowed in-flight call. A background loop wakes
// every C/R/4 seconds and adds R·Δt tokens for the elapsed time Δt, with no upper bound.
// Concurrency (C) therefore limits bursts while the rate (R) alone sets sustained throughput.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

const minInterval = time.Millisecond

// ErrStopped is returned by [Bucket.Start] when the bucket was already stopped.
var ErrStopped = errors.New("rate limiter stopped")

// Bucket is a leaky bucket concurrency gate. It is safe for concurrent use.
type Bucket struct {
	clock       Clock
	rate        float64
	concurrency int
	interval    time.Duration

	mu       sync.Mutex
	tokens   int
	released int
	carry    float64
	wake     chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
	running   bool
}

// NewBucket creates a bucket for at most concurrency simultaneous calls refilled at rate calls per second.
//
// A nil clock means [SystemClock]. Non-positive values fall back to 1.
func NewBucket(concurrency int, rate float64, clock Clock) *Bucket {
	if concurrency < 1 {
		concurrency = 1
	}
	if rate <= 0 {
		rate = 1
	}
	if clock == nil {
		clock = SystemClock{}
	}

	interval := time.Duration(float64(concurrency) / rate / 4 * float64(time.Second))
	if interval < minInterval {
		interval = minInterval
	}

	return &Bucket{
		clock:       clock,
		rate:        rate,
		concurrency: concurrency,
		interval:    interval,
		tokens:      concurrency,
		wake:        make(chan struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Interval is the refill period, C/R/4.
func (b *Bucket) Interval() time.Duration {
	return b.interval
}

// Available returns the tokens currently in the bucket.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Released returns the total tokens added by refills since the bucket was created.
func (b *Bucket) Released() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Start launches the refill loop.
func (b *Bucket) Start() error {
	select {
	case <-b.stop:
		return ErrStopped
	default:
	}

	b.startOnce.Do(func() {
		b.mu.Lock()
		b.running = true
		b.mu.Unlock()
		go b.run()
	})
	return nil
}

// Stop cancels the refill loop and waits for it to exit. Waiters already blocked in
// [Bucket.Acquire] keep waiting until their context ends.
func (b *Bucket) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})

	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	if running {
		<-b.done
	}
}

// Acquire blocks until a token is available and consumes it.
func (b *Bucket) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.tokens > 0 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wake := b.wake
		b.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bucket) run() {
	defer close(b.done)

	last := b.clock.Now()
	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C():
			now := b.clock.Now()
			b.refill(now.Sub(last))
			last = now
		}
	}
}

// refill adds round(R·Δt) tokens. The rounding remainder carries into the next refill
// so the long-run total stays within half a token of R·T.
func (b *Bucket) refill(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	want := b.rate*elapsed.Seconds() + b.carry
	n := int(math.Round(want))
	b.carry = want - float64(n)
	if n <= 0 {
		return 0
	}

	b.tokens += n
	b.released += n
	close(b.wake)
	b.wake = make(chan struct{})
	return n
}
