package cache

import (
	"context"
	stderrors "errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
)

// ErrQueueClosed is returned once Close has been called.
var ErrQueueClosed = stderrors.New("cache queue closed")

// generationStripes is the number of invalidation counters keys are
// hashed onto.
const generationStripes = 256

type opKind int

const (
	opSet opKind = iota
	opDel
)

type op struct {
	kind  opKind
	key   string
	keys  []string
	value []byte
	ttl   time.Duration
	ack   chan error

	// guarded sets are skipped when key was invalidated after gen was read.
	guarded bool
	gen     uint64
}

// Queue serialises cache writes and invalidations through one bounded
// channel and one worker goroutine, so an invalidation is applied after
// every write enqueued before it. A write computed from data read before an
// invalidation of the same key is discarded; see Generation.
type Queue struct {
	store   Store
	ops     chan op
	timeout time.Duration
	logger  logger.Logger
	gens    [generationStripes]atomic.Uint64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueue starts the worker. size bounds the number of pending operations.
func NewQueue(store Store, size int, timeout time.Duration, log logger.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	q := &Queue{
		store:   store,
		ops:     make(chan op, size),
		timeout: timeout,
		logger:  logger.Component(log, "cache-queue"),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for o := range q.ops {
		err := q.apply(o)
		if o.ack != nil {
			o.ack <- err
		}
	}
}

func (q *Queue) apply(o op) error {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	var err error
	switch o.kind {
	case opSet:
		if o.guarded && q.Generation(o.key) != o.gen {
			metrics.CacheQueueDropped.WithLabelValues("stale").Inc()
			q.logger.Debug("Dropped write superseded by invalidation", map[string]interface{}{"key": o.key})
			return nil
		}
		err = q.store.Set(ctx, o.key, o.value, o.ttl)
	case opDel:
		err = q.store.Del(ctx, o.keys...)
	}
	if err != nil {
		q.logger.Warn("Cache operation failed", map[string]interface{}{
			"key":   o.key,
			"keys":  o.keys,
			"error": err,
		})
	}
	return err
}

func stripe(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % generationStripes)
}

// Generation returns the invalidation counter of key. Read it before
// loading the data a write is computed from and pass it to SetAsyncAt.
func (q *Queue) Generation(key string) uint64 {
	return q.gens[stripe(key)].Load()
}

// SetAsync enqueues a write without blocking. When the queue is full the
// write is dropped; the cache is an optimisation only.
func (q *Queue) SetAsync(key string, value []byte, ttl time.Duration) bool {
	return q.set(op{kind: opSet, key: key, value: value, ttl: ttl})
}

// SetAsyncAt is SetAsync for a value computed at generation gen. The write
// is discarded if key has been invalidated since.
func (q *Queue) SetAsyncAt(key string, value []byte, ttl time.Duration, gen uint64) bool {
	return q.set(op{kind: opSet, key: key, value: value, ttl: ttl, guarded: true, gen: gen})
}

func (q *Queue) set(o op) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	select {
	case q.ops <- o:
		return true
	default:
		metrics.CacheQueueDropped.WithLabelValues("set").Inc()
		return false
	}
}

// Invalidate enqueues deletion of keys, waiting for queue space but not
// for the deletion itself.
func (q *Queue) Invalidate(ctx context.Context, keys ...string) error {
	return q.enqueue(ctx, op{kind: opDel, keys: keys})
}

// InvalidateSync enqueues deletion of keys and waits until the worker has
// applied it.
func (q *Queue) InvalidateSync(ctx context.Context, keys ...string) error {
	ack := make(chan error, 1)
	if err := q.enqueue(ctx, op{kind: opDel, keys: keys, ack: ack}); err != nil {
		return err
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) enqueue(ctx context.Context, o op) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	for _, k := range o.keys {
		q.gens[stripe(k)].Add(1)
	}
	select {
	case q.ops <- o:
		return nil
	case <-ctx.Done():
		metrics.CacheQueueDropped.WithLabelValues("invalidate").Inc()
		return ctx.Err()
	}
}

// Close stops accepting operations and waits for pending ones to drain.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ops)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
