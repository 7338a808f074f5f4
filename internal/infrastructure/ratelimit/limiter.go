// Package ratelimit implements the collector-facing rate limiter (C3):
// one sliding-window log per feed, admitting at most maxRequests permits
// within any trailing window. NVD gets its own stricter ceiling
// (5 req/6s unauthenticated, 50 req/6s with an API key).
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	nvdFeedName = "nvd"
	nvdWindow   = 6 * time.Second

	nvdUnauthenticatedMax = 5
	nvdAuthenticatedMax   = 50

	defaultFeedMax    = 10
	defaultFeedWindow = 10 * time.Second
)

// slidingWindow is a sliding-window log of issued permit timestamps.
// Unlike a continuously-refilling token bucket, the (n+1)th permit after
// n back-to-back grants is admitted no earlier than the oldest grant
// plus the full window, which is the behaviour the NVD ceiling requires.
type slidingWindow struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	issued      []time.Time
}

func newSlidingWindow(maxRequests int, window time.Duration) *slidingWindow {
	return &slidingWindow{maxRequests: maxRequests, window: window}
}

// reserve reaps permits older than the window, then either grants one
// (recording now) or reports the earliest instant a grant can succeed.
func (s *slidingWindow) reserve(now time.Time) (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.window)
	reaped := 0
	for reaped < len(s.issued) && !s.issued[reaped].After(cutoff) {
		reaped++
	}
	s.issued = s.issued[reaped:]

	if len(s.issued) < s.maxRequests {
		s.issued = append(s.issued, now)
		return true, time.Time{}
	}
	return false, s.issued[0].Add(s.window)
}

// wait blocks until a permit is granted or ctx is done.
func (s *slidingWindow) wait(ctx context.Context) error {
	for {
		ok, admitAt := s.reserve(time.Now())
		if ok {
			return nil
		}

		timer := time.NewTimer(time.Until(admitAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Limiter hands out per-feed window logs on first use, sized per feed
// name; NVD's ceiling depends on whether an API key was configured.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*slidingWindow
	nvdHasKey bool
}

func New(nvdHasKey bool) *Limiter {
	return &Limiter{
		windows:   make(map[string]*slidingWindow),
		nvdHasKey: nvdHasKey,
	}
}

// Wait blocks until the named feed's window admits one more request, or
// ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.windowFor(key).wait(ctx)
}

func (l *Limiter) windowFor(key string) *slidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.windows[key]; ok {
		return existing
	}

	w := newSlidingWindow(defaultFeedMax, defaultFeedWindow)
	if key == nvdFeedName {
		if l.nvdHasKey {
			w = newSlidingWindow(nvdAuthenticatedMax, nvdWindow)
		} else {
			w = newSlidingWindow(nvdUnauthenticatedMax, nvdWindow)
		}
	}

	l.windows[key] = w
	return w
}
