package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lillylight/Nako-backend/internal/payments"
)

// SignatureHeader is the header Coinbase Commerce signs webhooks with.
const SignatureHeader = "x-cc-webhook-signature"

var (
	// ErrNoSecret indicates the webhook shared secret is not configured.
	ErrNoSecret = errors.New("coinbase: COINBASE_WEBHOOK_SECRET not set")

	// ErrNoSignature indicates the request carried no signature header.
	ErrNoSignature = errors.New("coinbase: no signature found")

	// ErrBadSignature indicates the signature did not match the body.
	ErrBadSignature = errors.New("coinbase: invalid signature")
)

// VerifySignature checks that signature is the hex HMAC-SHA256 of rawBody
// under secret.
func VerifySignature(secret string, rawBody []byte, signature string) error {
	if secret == "" {
		return ErrNoSecret
	}
	if signature == "" {
		return ErrNoSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// WebhookEvent is the event object inside a Commerce webhook payload.
type WebhookEvent struct {
	Type string        `json:"type"`
	Data WebhookCharge `json:"data"`
}

// WebhookCharge is the charge snapshot embedded in a webhook event.
type WebhookCharge struct {
	ID       string           `json:"id"`
	Code     string           `json:"code"`
	Timeline []TimelineEntry  `json:"timeline"`
	Payments []map[string]any `json:"payments"`
}

type webhookPayload struct {
	Event *WebhookEvent `json:"event"`
}

// ParseWebhook decodes a signed webhook body into its event.
func ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("coinbase: parse webhook body: %w", err)
	}
	if payload.Event == nil {
		return nil, errors.New("coinbase: no event found in webhook payload")
	}
	return payload.Event, nil
}

// EventStatus maps a Commerce event type to the local payment status.
// Unrecognized types return ok=false and are meant to be ignored.
func EventStatus(eventType string) (payments.Status, bool) {
	switch eventType {
	case "charge:created":
		return payments.StatusCreated, true
	case "charge:confirmed":
		return payments.StatusConfirmed, true
	case "charge:failed":
		return payments.StatusFailed, true
	case "charge:delayed":
		return payments.StatusDelayed, true
	case "charge:pending":
		return payments.StatusPending, true
	case "charge:resolved":
		return payments.StatusCompleted, true
	default:
		return "", false
	}
}
