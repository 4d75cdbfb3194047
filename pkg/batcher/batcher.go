// Package batcher groups a stream of items into batches flushed by size or
// after an interval, with an optional cap on the flush rate.
package batcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// ErrStopped is returned by Add once Stop has been called.
var ErrStopped = errors.New("batcher stopped")

const defaultInterval = time.Second

// Config controls when buffered items are flushed.
type Config struct {
	// Size flushes the buffer once it holds this many items.
	Size int
	// Interval flushes a partial buffer after this long. Defaults to one second.
	Interval time.Duration
	// RPS caps flushes per second. Zero means unlimited.
	RPS int
}

// Batcher buffers items and hands them to the flush callback in order.
// Flushes run sequentially on a single goroutine.
type Batcher[T any] struct {
	flushCallback func(context.Context, []T) error
	itemsCh       chan T
	size          int
	interval      time.Duration
	rl            ratelimit.Limiter
	logger        *zap.Logger

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	err      error

	// mu orders sends in Add against the final drain in run. Once stopped
	// is set no Add can enqueue, so every accepted item is flushed.
	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// New constructs a Batcher.
func New[T any](logger *zap.Logger, flushCallback func(context.Context, []T) error, cfg Config) *Batcher[T] {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	rl := ratelimit.NewUnlimited()
	if cfg.RPS > 0 {
		rl = ratelimit.New(cfg.RPS)
	}
	return &Batcher[T]{
		logger:        logger,
		flushCallback: flushCallback,
		itemsCh:       make(chan T, cfg.Size*2),
		size:          cfg.Size,
		interval:      cfg.Interval,
		rl:            rl,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the background flushing loop.
func (b *Batcher[T]) Start(ctx context.Context) {
	b.wg.Go(func() { b.run(ctx) })
}

// Stop flushes what is still queued, stops the loop and returns the first
// flush error. It is safe to call more than once.
func (b *Batcher[T]) Stop() error {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
	return b.err
}

// Add queues an item for batching, respecting context cancellation. An
// item accepted with a nil error by a started Batcher is flushed before Stop
// returns.
func (b *Batcher[T]) Add(ctx context.Context, item T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stop:
		return ErrStopped
	case <-b.done:
		return ErrStopped
	case b.itemsCh <- item:
		return nil
	}
}

func (b *Batcher[T]) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	buf := make([]T, 0, b.size)

	flush := func() {
		if len(buf) == 0 {
			return
		}

		b.rl.Take()
		err := b.flushCallback(ctx, buf)
		if err != nil {
			if b.err == nil {
				b.err = err
			}
			b.logger.Error("batch not flushed", zap.Int("size", len(buf)), zap.Error(err))
		} else {
			b.logger.Debug("batch flushed", zap.Int("size", len(buf)))
		}
		buf = buf[:0]
	}
	add := func(item T) {
		buf = append(buf, item)
		if len(buf) >= b.size {
			flush()
		}
	}

	// shutdown releases blocked senders, waits for those in flight and
	// flushes everything they queued.
	shutdown := func() {
		close(b.done)
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		for {
			select {
			case item := <-b.itemsCh:
				add(item)
			default:
				flush()
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			shutdown()
			return

		case <-b.stop:
			shutdown()
			return

		case item := <-b.itemsCh:
			add(item)

		case <-ticker.C:
			flush()
		}
	}
}
