package payments

import (
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Records survive until the process
// exits; nothing evicts them.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]*Payment
	completed map[string]bool
	hook      CompletionHook
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store. hook may be nil.
func NewMemoryStore(hook CompletionHook) *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]*Payment),
		completed: make(map[string]bool),
		hook:      hook,
		now:       time.Now,
	}
}

// Create inserts a new record with status created.
func (s *MemoryStore) Create(chargeID, code, amount, currency, customerID string, metadata map[string]any) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := &Payment{
		ChargeID:   chargeID,
		Code:       code,
		Status:     StatusCreated,
		Amount:     amount,
		Currency:   currency,
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   metadata,
	}
	s.records[chargeID] = p

	slog.Info("payment created", "chargeId", chargeID)
	return clone(p), nil
}

// UpdateStatus transitions an existing record. Unknown charges return
// (nil, nil). The completion hook fires on the first transition to a paid
// status; later paid updates for the same charge are no-ops for the hook.
func (s *MemoryStore) UpdateStatus(chargeID string, status Status) (*Payment, error) {
	s.mu.Lock()

	p, ok := s.records[chargeID]
	if !ok {
		s.mu.Unlock()
		slog.Warn("payment not found", "chargeId", chargeID)
		return nil, nil
	}

	p.Status = status
	p.UpdatedAt = s.now()

	fireHook := status.Paid() && !s.completed[chargeID] && s.hook != nil
	if status.Paid() {
		s.completed[chargeID] = true
	}
	updated := clone(p)
	s.mu.Unlock()

	slog.Info("payment status updated", "chargeId", chargeID, "status", status)

	if fireHook {
		s.hook(updated)
	}

	return updated, nil
}

// Get returns a record, or (nil, nil) when absent.
func (s *MemoryStore) Get(chargeID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[chargeID]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

// List returns all records.
func (s *MemoryStore) List() ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Payment, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, clone(p))
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func clone(p *Payment) *Payment {
	cp := *p
	if p.Metadata != nil {
		cp.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
