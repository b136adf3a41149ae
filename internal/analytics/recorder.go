// Package analytics records search and autocomplete queries off the
// request path.
package analytics

import (
	"context"
	"strings"
	"sync"
	"time"

	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
)

// Query kinds.
const (
	KindSearch       = "search"
	KindAutocomplete = "autocomplete"
)

type Event struct {
	Kind      string    `json:"kind"`
	Query     string    `json:"query"`
	Type      string    `json:"type,omitempty"`
	Results   int       `json:"results"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink stores or forwards one event.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Recorder hands events to its sinks from a single background goroutine.
// Record never blocks; events are dropped when the queue is full.
type Recorder struct {
	sinks   []Sink
	events  chan Event
	timeout time.Duration
	logger  logger.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewRecorder(sinks []Sink, queueSize int, timeout time.Duration, log logger.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &Recorder{
		sinks:   sinks,
		events:  make(chan Event, queueSize),
		timeout: timeout,
		logger:  logger.Component(log, "analytics"),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues ev and reports whether it was accepted.
func (r *Recorder) Record(ev Event) bool {
	ev.Query = strings.TrimSpace(ev.Query)
	if ev.Query == "" {
		return false
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.events <- ev:
		return true
	default:
		metrics.AnalyticsEvents.WithLabelValues("dropped").Inc()
		return false
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		r.deliver(ev)
	}
}

func (r *Recorder) deliver(ev Event) {
	for _, sink := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := sink.Record(ctx, ev)
		cancel()
		if err != nil {
			metrics.AnalyticsEvents.WithLabelValues("failed").Inc()
			r.logger.Warn("Analytics sink failed", map[string]interface{}{"kind": ev.Kind, "error": err})
			continue
		}
		metrics.AnalyticsEvents.WithLabelValues("recorded").Inc()
	}
}

// Close stops accepting events and waits for queued ones to be delivered,
// bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
