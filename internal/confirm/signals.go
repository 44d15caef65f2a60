package confirm

import (
	"context"
	"strings"
	"time"
)

// WidgetMessage is a structured message posted by the checkout widget
// across the frame boundary.
type WidgetMessage struct {
	Type       string `json:"type"`
	Status     string `json:"status"`
	EventType  string `json:"eventType"`
	HostedURL  string `json:"hostedUrl"`
	ReceiptURL string `json:"receiptUrl"`
}

// successEventTypes are widget event types that mean the charge went
// through.
var successEventTypes = map[string]bool{
	"charge:confirmed": true,
	"charge:resolved":  true,
	"charge:completed": true,
}

// IsSuccess reports whether the message indicates a completed payment.
func (m WidgetMessage) IsSuccess() bool {
	if m.Type == "checkout-status-change" && m.Status == "success" {
		return true
	}
	return successEventTypes[m.EventType]
}

func (m WidgetMessage) receiptURL() string {
	if m.ReceiptURL != "" {
		return m.ReceiptURL
	}
	return m.HostedURL
}

// MessageSignal detects success from widget messages pushed in via
// Deliver.
type MessageSignal struct {
	ch   chan WidgetMessage
	done chan struct{}
}

// NewMessageSignal creates an idle message source; it does nothing until
// Start.
func NewMessageSignal() *MessageSignal {
	return &MessageSignal{
		ch:   make(chan WidgetMessage, 16),
		done: make(chan struct{}),
	}
}

// Deliver feeds one widget message into the source. Messages delivered
// before Start or after Stop are dropped.
func (s *MessageSignal) Deliver(m WidgetMessage) {
	select {
	case s.ch <- m:
	case <-s.done:
	default:
	}
}

func (s *MessageSignal) Start(ctx context.Context, report func(Event)) {
	go func() {
		for {
			select {
			case m := <-s.ch:
				if m.IsSuccess() {
					report(Event{Source: "message", ReceiptURL: m.receiptURL()})
				}
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}()
}

func (s *MessageSignal) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Success markers rendered by the checkout widget.
var (
	successClasses = []string{"ock-text-success", "ock-success-message"}
	successPhrases = []string{
		"Payment successful",
		"Payment completed",
		"Transaction complete",
		"Payment confirmed",
		"View payment details",
	}
)

// MarkupIndicatesSuccess is the shared check for rendered widget markup,
// used by both the mutation source and the polling source.
func MarkupIndicatesSuccess(markup string) bool {
	for _, class := range successClasses {
		if strings.Contains(markup, class) {
			return true
		}
	}
	for _, phrase := range successPhrases {
		if strings.Contains(markup, phrase) {
			return true
		}
	}
	return false
}

// MutationSignal detects success from markup snapshots pushed in via
// Observe, one per observed widget change.
type MutationSignal struct {
	ch   chan string
	done chan struct{}
}

// NewMutationSignal creates an idle mutation source.
func NewMutationSignal() *MutationSignal {
	return &MutationSignal{
		ch:   make(chan string, 16),
		done: make(chan struct{}),
	}
}

// Observe feeds one markup snapshot into the source.
func (s *MutationSignal) Observe(markup string) {
	select {
	case s.ch <- markup:
	case <-s.done:
	default:
	}
}

func (s *MutationSignal) Start(ctx context.Context, report func(Event)) {
	go func() {
		for {
			select {
			case markup := <-s.ch:
				if MarkupIndicatesSuccess(markup) {
					report(Event{Source: "mutation"})
				}
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}()
}

func (s *MutationSignal) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// PollSignal re-runs the markup check on a fixed interval, covering
// changes the mutation source missed.
type PollSignal struct {
	// Interval between checks, 1s by default.
	Interval time.Duration
	// Snapshot returns the current widget markup.
	Snapshot func() string

	done chan struct{}
}

// NewPollSignal creates a polling source over the given snapshot
// function.
func NewPollSignal(snapshot func() string) *PollSignal {
	return &PollSignal{
		Interval: time.Second,
		Snapshot: snapshot,
		done:     make(chan struct{}),
	}
}

func (s *PollSignal) Start(ctx context.Context, report func(Event)) {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if MarkupIndicatesSuccess(s.Snapshot()) {
					report(Event{Source: "poll"})
				}
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}()
}

func (s *PollSignal) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
