// Package ratelimit provides a fixed-window, in-memory request limiter.
//
// State lives in a single process; horizontal scaling would need a shared
// store, which this service deliberately does not use.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of requests allowed per window.
	DefaultLimit = 3

	// DefaultWindow is the length of the counting window.
	DefaultWindow = time.Minute

	sweepInterval = 5 * time.Minute
)

// Result describes the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter tracks request counts per identifier.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter and starts its background sweep, which
// periodically drops expired entries to bound memory.
func NewLimiter() *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go l.sweepLoop()

	return l
}

// Check records a request for identifier and reports whether it is allowed.
// An expired entry is replaced with a fresh zero-count window; a denied
// request does not increment the counter.
func (l *Limiter) Check(identifier string, limit int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[identifier]
	if !ok || e.resetTime.Before(now) {
		e = &entry{count: 0, resetTime: now.Add(window)}
		l.entries[identifier] = e
	}

	allowed := e.count < limit
	if allowed {
		e.count++
	}

	remaining := limit - e.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetTime: e.resetTime,
	}
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if e.resetTime.Before(now) {
			delete(l.entries, key)
		}
	}
}
