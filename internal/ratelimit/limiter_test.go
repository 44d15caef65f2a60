package ratelimit

import (
	"testing"
	"time"
)

// newTestLimiter returns a limiter with a controllable clock and no
// background sweep goroutine.
func newTestLimiter(now *time.Time) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     func() time.Time { return *now },
		done:    make(chan struct{}),
	}
}

func TestCheckAllowsUpToLimit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, l.Check("x", 3, time.Second).Allowed)
	}

	want := []bool{true, true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: allowed = %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestCheckRemainingCounts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	tests := []struct {
		wantAllowed   bool
		wantRemaining int
	}{
		{true, 2},
		{true, 1},
		{true, 0},
		{false, 0},
		{false, 0},
	}

	for i, tt := range tests {
		res := l.Check("ip-1", 3, time.Minute)
		if res.Allowed != tt.wantAllowed {
			t.Errorf("call %d: allowed = %v, want %v", i+1, res.Allowed, tt.wantAllowed)
		}
		if res.Remaining != tt.wantRemaining {
			t.Errorf("call %d: remaining = %d, want %d", i+1, res.Remaining, tt.wantRemaining)
		}
	}
}

func TestCheckWindowExpiryResetsCounter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	for i := 0; i < 3; i++ {
		l.Check("x", 3, time.Second)
	}
	if res := l.Check("x", 3, time.Second); res.Allowed {
		t.Fatal("expected denial inside window")
	}

	// Advance past the window; the entry is replaced and the first request
	// of the new window is allowed with count 1.
	now = now.Add(2 * time.Second)

	res := l.Check("x", 3, time.Second)
	if !res.Allowed {
		t.Error("expected request after window to be allowed")
	}
	if res.Remaining != 2 {
		t.Errorf("remaining = %d, want 2 (counter reset to 1)", res.Remaining)
	}
	if want := now.Add(time.Second); !res.ResetTime.Equal(want) {
		t.Errorf("resetTime = %v, want %v", res.ResetTime, want)
	}
}

func TestCheckIsolatesIdentifiers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	for i := 0; i < 3; i++ {
		l.Check("a", 3, time.Minute)
	}

	if res := l.Check("a", 3, time.Minute); res.Allowed {
		t.Error("expected 'a' to be limited")
	}
	if res := l.Check("b", 3, time.Minute); !res.Allowed {
		t.Error("expected 'b' to be unaffected")
	}
}

func TestSweepDeletesExpiredEntries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	l.Check("stale", 3, time.Second)
	l.Check("fresh", 3, time.Hour)

	now = now.Add(2 * time.Second)
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries["stale"]; ok {
		t.Error("expected expired entry to be swept")
	}
	if _, ok := l.entries["fresh"]; !ok {
		t.Error("expected live entry to survive sweep")
	}
}
