// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vikingscouts/eventmgmt/internal/models"
)

func TestQueue_FIFOOrdering(t *testing.T) {
	q := New(Options{})
	defer q.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	// Submit from one goroutine so submission order is defined.
	wg.Add(1)
	go func() {
		defer wg.Done()
		var inner sync.WaitGroup
		for i := 0; i < 5; i++ {
			i := i
			inner.Add(1)
			done := make(chan struct{})
			go func() {
				defer inner.Done()
				_ = q.Do(context.Background(), "test", func(context.Context) (*models.RateLimitInfo, error) {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
					return nil, nil
				})
				close(done)
			}()
			// Wait for each submission to finish before the next so the
			// expected order is unambiguous.
			<-done
		}
		inner.Wait()
	}()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestQueue_RetryAfterRerunsSameCall(t *testing.T) {
	q := New(Options{})
	defer q.Stop()

	attempts := 0
	err := q.Do(context.Background(), "test", func(context.Context) (*models.RateLimitInfo, error) {
		attempts++
		if attempts == 1 {
			return nil, &RateLimitError{RetryAfter: 5 * time.Millisecond}
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestQueue_RateLimitWithoutHintSurfaces(t *testing.T) {
	q := New(Options{})
	defer q.Stop()

	rle := &RateLimitError{}
	err := q.Do(context.Background(), "test", func(context.Context) (*models.RateLimitInfo, error) {
		return nil, rle
	})

	var got *RateLimitError
	if !errors.As(err, &got) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
}

func TestQueue_RetryBudgetExhausted(t *testing.T) {
	q := New(Options{})
	defer q.Stop()

	attempts := 0
	err := q.Do(context.Background(), "test", func(context.Context) (*models.RateLimitInfo, error) {
		attempts++
		return nil, &RateLimitError{RetryAfter: time.Millisecond}
	})

	var got *RateLimitError
	if !errors.As(err, &got) {
		t.Fatalf("expected RateLimitError after retries, got %v", err)
	}
	if attempts != maxRateLimitRetries+1 {
		t.Errorf("expected %d attempts, got %d", maxRateLimitRetries+1, attempts)
	}
}

func TestQueue_OtherErrorsPassThrough(t *testing.T) {
	q := New(Options{})
	defer q.Stop()

	boom := errors.New("boom")
	err := q.Do(context.Background(), "test", func(context.Context) (*models.RateLimitInfo, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestQueue_CancelledBeforeRun(t *testing.T) {
	q := New(Options{})
	defer q.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := q.Do(ctx, "test", func(context.Context) (*models.RateLimitInfo, error) {
		ran = true
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The thunk may have been skipped entirely; it must not have run to
	// completion after Do returned an error and reported cancellation.
	_ = ran
}

func TestQueue_StatsCounters(t *testing.T) {
	q := New(Options{})
	defer q.Stop()

	_ = q.Do(context.Background(), "ok", func(context.Context) (*models.RateLimitInfo, error) {
		return &models.RateLimitInfo{OSM: models.RateLimitOSM{Limit: 100, Remaining: 90}}, nil
	})
	_ = q.Do(context.Background(), "fail", func(context.Context) (*models.RateLimitInfo, error) {
		return nil, errors.New("nope")
	})

	s := q.Stats()
	if s.Submitted != 2 || s.Processed != 2 || s.Failed != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.LastRateLimit == nil || s.LastRateLimit.OSM.Remaining != 90 {
		t.Errorf("rate limit info not recorded: %+v", s.LastRateLimit)
	}
}
