// Package confirm infers "payment succeeded" from an embedded checkout
// widget whose internal state is not directly observable. Independent
// signal sources feed one latch; the first source to fire wins and the
// rest are suppressed.
package confirm

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCallbackDelay is how long detection waits before invoking the
// success callback, so the user can read the widget's own confirmation.
const DefaultCallbackDelay = 3 * time.Second

// Event describes a single detection.
type Event struct {
	// Source names the signal that fired, e.g. "message" or "poll".
	Source string
	// ReceiptURL is the vendor receipt link when the signal carried one.
	ReceiptURL string
}

// Signal is one independent confirmation source. Start must return
// promptly and deliver detections through report; a source may report any
// number of times, the detector deduplicates. Stop releases the source's
// resources and must be safe to call more than once.
type Signal interface {
	Start(ctx context.Context, report func(Event))
	Stop()
}

// Detector combines signal sources under a single fire-once latch.
type Detector struct {
	signals []Signal
	onPaid  func(Event)
	delay   time.Duration

	once   sync.Once
	cancel context.CancelFunc

	mu       sync.Mutex
	verified bool
	event    Event
	timer    *time.Timer
	closed   bool
}

// Option adjusts detector behavior.
type Option func(*Detector)

// WithCallbackDelay overrides the delay between detection and the success
// callback.
func WithCallbackDelay(d time.Duration) Option {
	return func(det *Detector) { det.delay = d }
}

// NewDetector builds a detector over the given sources. onPaid runs once,
// after the configured delay, on whichever goroutine the timer fires on.
func NewDetector(onPaid func(Event), signals []Signal, opts ...Option) *Detector {
	d := &Detector{
		signals: signals,
		onPaid:  onPaid,
		delay:   DefaultCallbackDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches every signal source.
func (d *Detector) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for _, s := range d.signals {
		s.Start(ctx, d.report)
	}
}

// report is the shared sink for all sources. The latch guarantees the
// callback schedule happens for the first event only.
func (d *Detector) report(ev Event) {
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}

		d.verified = true
		d.event = ev
		slog.Info("payment confirmation detected", "source", ev.Source, "receiptUrl", ev.ReceiptURL)

		d.timer = time.AfterFunc(d.delay, func() {
			if d.onPaid != nil {
				d.onPaid(ev)
			}
		})
	})
}

// Verified reports whether any source has detected a successful payment.
// It flips immediately on detection, before the delayed callback runs.
func (d *Detector) Verified() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.verified
}

// Detected returns the winning event, valid only once Verified is true.
func (d *Detector) Detected() Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.event
}

// Close tears down all sources and cancels a pending callback.
func (d *Detector) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	for _, s := range d.signals {
		s.Stop()
	}
}
