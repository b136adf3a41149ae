package cache

import (
	"context"
	stderrors "errors"
	"time"

	json "github.com/goccy/go-json"

	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
)

// Layer combines awaited reads with queued, fire-and-forget writes.
type Layer struct {
	store  Store
	queue  *Queue
	logger logger.Logger
}

func NewLayer(store Store, queue *Queue, log logger.Logger) *Layer {
	return &Layer{store: store, queue: queue, logger: logger.Component(log, "cache")}
}

// Queue exposes the write queue for invalidation.
func (l *Layer) Queue() *Queue {
	return l.queue
}

// Lookup decodes the cached value at key into out. Any failure is a miss.
func (l *Layer) Lookup(ctx context.Context, name, key string, out interface{}) bool {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, ErrMiss) {
			metrics.CacheRequests.WithLabelValues(name, "miss").Inc()
		} else {
			metrics.CacheRequests.WithLabelValues(name, "error").Inc()
			l.logger.Warn("Cache read failed", map[string]interface{}{"cache": name, "key": key, "error": err})
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		metrics.CacheRequests.WithLabelValues(name, "error").Inc()
		l.logger.Warn("Cached value is not decodable", map[string]interface{}{"cache": name, "key": key, "error": err})
		return false
	}
	metrics.CacheRequests.WithLabelValues(name, "hit").Inc()
	return true
}

// Store encodes v and queues the write.
func (l *Layer) Store(name, key string, v interface{}, ttl time.Duration) {
	if data, ok := l.encode(name, key, v); ok {
		l.queue.SetAsync(key, data, ttl)
	}
}

func (l *Layer) encode(name, key string, v interface{}) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		l.logger.Warn("Cache encode failed", map[string]interface{}{"cache": name, "key": key, "error": err})
		return nil, false
	}
	return data, true
}

// Fetch returns the cached T at key, or computes, queues and returns it.
// Errors from compute are returned and never cached. A value whose key is
// invalidated while it is being computed is returned but not cached. A nil
// Layer always computes.
func Fetch[T any](ctx context.Context, l *Layer, name, key string, ttl time.Duration, compute func(context.Context) (*T, error)) (*T, error) {
	if l == nil {
		return compute(ctx)
	}
	var cached T
	if l.Lookup(ctx, name, key, &cached) {
		return &cached, nil
	}

	gen := l.queue.Generation(key)
	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if data, ok := l.encode(name, key, v); ok {
		l.queue.SetAsyncAt(key, data, ttl, gen)
	}
	return v, nil
}
