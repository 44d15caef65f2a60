package payments

import (
	"path/filepath"
	"testing"
	"time"
)

// storeFactory lets the same suite run against every Store implementation.
type storeFactory func(t *testing.T, hook CompletionHook) Store

func memoryFactory(t *testing.T, hook CompletionHook) Store {
	t.Helper()
	return NewMemoryStore(hook)
}

func sqliteFactory(t *testing.T, hook CompletionHook) Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "payments.db"), hook)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": memoryFactory,
		"sqlite": sqliteFactory,
	}
}

func TestCreateAndGet(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, nil)

			meta := map[string]any{"hosted_url": "https://commerce.coinbase.com/charges/ABC"}
			created, err := s.Create("charge-1", "ABC", "1.00", "USDC", "cust-1", meta)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if created.Status != StatusCreated {
				t.Errorf("status = %q, want %q", created.Status, StatusCreated)
			}

			got, err := s.Get("charge-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got == nil {
				t.Fatal("expected record, got nil")
			}
			if got.Code != "ABC" || got.Amount != "1.00" || got.Currency != "USDC" || got.CustomerID != "cust-1" {
				t.Errorf("unexpected record: %+v", got)
			}
			if got.Metadata["hosted_url"] != "https://commerce.coinbase.com/charges/ABC" {
				t.Errorf("metadata not round-tripped: %+v", got.Metadata)
			}
		})
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, nil)

			got, err := s.Get("nope")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != nil {
				t.Errorf("expected nil for missing charge, got %+v", got)
			}
		})
	}
}

func TestUpdateStatusMissingDoesNotCreate(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, nil)

			updated, err := s.UpdateStatus("ghost", StatusConfirmed)
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated != nil {
				t.Errorf("expected nil result for unknown charge, got %+v", updated)
			}

			got, err := s.Get("ghost")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != nil {
				t.Error("update of unknown charge must not create a record")
			}
		})
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, nil)

			if _, err := s.Create("charge-1", "ABC", "1.00", "USDC", "anonymous", nil); err != nil {
				t.Fatalf("create: %v", err)
			}

			for _, status := range []Status{StatusPending, StatusConfirmed, StatusCompleted} {
				updated, err := s.UpdateStatus("charge-1", status)
				if err != nil {
					t.Fatalf("update to %s: %v", status, err)
				}
				if updated == nil {
					t.Fatalf("update to %s: got nil record", status)
				}
				if updated.Status != status {
					t.Errorf("status = %q, want %q", updated.Status, status)
				}
			}
		})
	}
}

func TestCompletionHookFiresOnce(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			var fired []Status
			s := factory(t, func(p *Payment) { fired = append(fired, p.Status) })

			if _, err := s.Create("charge-1", "ABC", "1.00", "USDC", "anonymous", nil); err != nil {
				t.Fatalf("create: %v", err)
			}

			s.UpdateStatus("charge-1", StatusPending)
			if len(fired) != 0 {
				t.Fatal("hook must not fire for pending")
			}

			s.UpdateStatus("charge-1", StatusConfirmed)
			if len(fired) != 1 {
				t.Fatalf("hook fired %d times after confirmed, want 1", len(fired))
			}

			// A later completed event for the same charge is idempotent.
			s.UpdateStatus("charge-1", StatusCompleted)
			s.UpdateStatus("charge-1", StatusConfirmed)
			if len(fired) != 1 {
				t.Errorf("hook fired %d times total, want 1", len(fired))
			}
		})
	}
}

func TestList(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, nil)

			s.Create("a", "A", "1.00", "USDC", "c1", nil)
			s.Create("b", "B", "2.00", "USDC", "c2", nil)

			all, err := s.List()
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != 2 {
				t.Errorf("len = %d, want 2", len(all))
			}
		})
	}
}

func TestStatusPaid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusCreated, false},
		{StatusPending, false},
		{StatusConfirmed, true},
		{StatusCompleted, true},
		{StatusFailed, false},
		{StatusDelayed, false},
		{StatusExpired, false},
		{StatusCanceled, false},
	}

	for _, tt := range tests {
		if got := tt.status.Paid(); got != tt.want {
			t.Errorf("%s.Paid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	s := NewMemoryStore(nil)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	created, _ := s.Create("charge-1", "ABC", "1.00", "USDC", "anonymous", map[string]any{"k": "v"})
	created.Status = StatusFailed
	created.Metadata["k"] = "mutated"

	got, _ := s.Get("charge-1")
	if got.Status != StatusCreated {
		t.Errorf("stored status mutated through returned record: %q", got.Status)
	}
	if got.Metadata["k"] != "v" {
		t.Errorf("stored metadata mutated through returned record: %v", got.Metadata)
	}
}
