// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package queue serializes every upstream call through a single-lane FIFO.
// Exactly one call is in flight at a time, submissions complete in
// submission order, and a server-issued retry-after pauses the whole lane
// before the same call is re-run. This is the only path to the upstream;
// nothing may bypass it.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/metrics"
	"github.com/vikingscouts/eventmgmt/internal/models"
)

// maxRateLimitRetries caps re-runs of a single call after 429 responses
// that carry a retry-after.
const maxRateLimitRetries = 5

// RateLimitError reports an upstream 429. RetryAfter is zero when the
// response carried no usable retry hint; such errors surface to the caller
// instead of being retried.
type RateLimitError struct {
	RetryAfter time.Duration
	Info       *models.RateLimitInfo
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// Thunk is one queued upstream call. It returns the response's rate-limit
// side channel (may be nil); the response itself is captured by closure.
type Thunk func(ctx context.Context) (*models.RateLimitInfo, error)

// Stats is an observability snapshot of the queue.
type Stats struct {
	Submitted     uint64
	Processed     uint64
	Failed        uint64
	Retries       uint64
	Depth         int
	LastRateLimit *models.RateLimitInfo
}

type task struct {
	ctx   context.Context
	label string
	thunk Thunk
	done  chan error
}

// Queue is the single-lane upstream FIFO.
type Queue struct {
	tasks   chan *task
	limiter *rate.Limiter
	stop    chan struct{}
	once    sync.Once

	mu    sync.Mutex
	stats Stats
}

// Options tunes the queue.
type Options struct {
	// RequestsPerSecond paces submissions; 0 disables pacing.
	RequestsPerSecond float64
	// Buffer is the submission channel depth. Default 64.
	Buffer int
}

// New creates and starts a queue. Call Stop when done.
func New(opts Options) *Queue {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	q := &Queue{
		tasks: make(chan *task, opts.Buffer),
		stop:  make(chan struct{}),
	}
	if opts.RequestsPerSecond > 0 {
		q.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	go q.run()
	return q
}

// Stop shuts the worker down after the in-flight call completes. Pending
// submissions fail with a queue-stopped error.
func (q *Queue) Stop() {
	q.once.Do(func() { close(q.stop) })
}

// Do submits a call and blocks until it completes in FIFO order. The
// context cancels waiting (and skips execution if not yet started) but
// never interrupts another caller's in-flight request.
func (q *Queue) Do(ctx context.Context, label string, thunk Thunk) error {
	t := &task{ctx: ctx, label: label, thunk: thunk, done: make(chan error, 1)}

	q.mu.Lock()
	q.stats.Submitted++
	q.mu.Unlock()
	metrics.QueueDepth.Set(float64(len(q.tasks) + 1))

	select {
	case q.tasks <- t:
	case <-q.stop:
		return errors.New("queue: stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Depth = len(q.tasks)
	return s
}

// run is the single worker loop. Serial execution here is what provides
// the global ordering guarantee.
func (q *Queue) run() {
	for {
		select {
		case <-q.stop:
			return
		case t := <-q.tasks:
			t.done <- q.process(t)
			metrics.QueueDepth.Set(float64(len(q.tasks)))
		}
	}
}

// process executes one task, re-running it after server-issued waits.
func (q *Queue) process(t *task) error {
	for attempt := 0; ; attempt++ {
		if err := t.ctx.Err(); err != nil {
			return err
		}
		if q.limiter != nil {
			if err := q.limiter.Wait(t.ctx); err != nil {
				return err
			}
		}

		info, err := t.thunk(t.ctx)
		q.observe(info)

		if err == nil {
			q.count(func(s *Stats) { s.Processed++ })
			metrics.QueueProcessed.WithLabelValues("success").Inc()
			return nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			q.count(func(s *Stats) { s.Processed++; s.Failed++ })
			metrics.QueueProcessed.WithLabelValues("error").Inc()
			return err
		}

		q.observe(rle.Info)
		if rle.RetryAfter <= 0 || attempt >= maxRateLimitRetries {
			// No retry hint (or retried out): surface the structured
			// rate-limit error; the caller decides.
			q.count(func(s *Stats) { s.Processed++; s.Failed++ })
			metrics.QueueProcessed.WithLabelValues("rate_limited").Inc()
			return err
		}

		// The whole lane pauses here: nothing behind this task runs
		// until the wait elapses and the same thunk is re-run.
		logging.Warn().Str("call", t.label).Dur("retry_after", rle.RetryAfter).Msg("upstream rate limited, queue paused")
		q.count(func(s *Stats) { s.Retries++ })
		metrics.QueueRetries.Inc()

		select {
		case <-time.After(rle.RetryAfter):
		case <-t.ctx.Done():
			return t.ctx.Err()
		case <-q.stop:
			return errors.New("queue: stopped")
		}
	}
}

func (q *Queue) count(f func(*Stats)) {
	q.mu.Lock()
	f(&q.stats)
	q.mu.Unlock()
}

// observe records the rate-limit side channel and logs threshold
// breaches: warnings under 20 remaining requests, errors under 10.
func (q *Queue) observe(info *models.RateLimitInfo) {
	if info == nil {
		return
	}
	q.mu.Lock()
	q.stats.LastRateLimit = info
	q.mu.Unlock()

	remaining := info.OSM.Remaining
	metrics.RateLimitRemaining.Set(float64(remaining))

	switch {
	case remaining < models.RateLimitErrorThreshold:
		logging.Error().Int("remaining", remaining).Int("limit", info.OSM.Limit).Msg("upstream rate budget nearly exhausted")
	case remaining < models.RateLimitWarnThreshold:
		logging.Warn().Int("remaining", remaining).Int("limit", info.OSM.Limit).Msg("upstream rate budget running low")
	}
}
