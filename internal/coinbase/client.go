// Package coinbase is a minimal client for the Coinbase Commerce API:
// charge creation, charge lookup, and webhook verification.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.commerce.coinbase.com"
	apiVersion     = "2018-03-22"

	chargeName        = "Birth Time Prediction"
	chargeDescription = "Personalized birth time prediction based on your details"
	productType       = "birth_time_prediction"
)

// ErrNoAPIKey indicates the Commerce API key is not configured.
var ErrNoAPIKey = errors.New("coinbase: COINBASE_COMMERCE_API_KEY not set")

// APIError is a non-2xx response from the Commerce API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coinbase: API error (%d): %s", e.Status, e.Message)
}

// Client calls the Coinbase Commerce API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a Commerce API client. apiKey may be empty; calls will
// then fail with ErrNoAPIKey.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Price is a money amount in a named currency.
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Charge is the subset of a vendor charge this service uses.
type Charge struct {
	ID        string           `json:"id"`
	Code      string           `json:"code"`
	HostedURL string           `json:"hosted_url"`
	CreatedAt string           `json:"created_at"`
	Pricing   ChargePricing    `json:"pricing"`
	Timeline  []TimelineEntry  `json:"timeline"`
	Payments  []map[string]any `json:"payments"`
}

// ChargePricing mirrors the vendor pricing object.
type ChargePricing struct {
	Local      Price           `json:"local"`
	Blockchain json.RawMessage `json:"blockchain,omitempty"`
}

// TimelineEntry is one status change in a charge's vendor-side history.
type TimelineEntry struct {
	Time   string `json:"time"`
	Status string `json:"status"`
}

// LatestStatus returns the most recent timeline status, or "NEW" when the
// timeline is empty.
func (c *Charge) LatestStatus() string {
	if len(c.Timeline) == 0 {
		return "NEW"
	}
	return c.Timeline[len(c.Timeline)-1].Status
}

type createChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  Price             `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
}

type chargeEnvelope struct {
	Data  Charge `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCharge creates a fixed-price charge. Empty arguments fall back to
// $1.00 USDC for an anonymous customer.
func (c *Client) CreateCharge(ctx context.Context, amount, currency, customerID string) (*Charge, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	if amount == "" {
		amount = "1.00"
	}
	if currency == "" {
		currency = "USDC"
	}
	if customerID == "" {
		customerID = "anonymous"
	}

	reqBody := createChargeRequest{
		Name:        chargeName,
		Description: chargeDescription,
		PricingType: "fixed_price",
		LocalPrice:  Price{Amount: amount, Currency: currency},
		Metadata: map[string]string{
			"customer_id":  customerID,
			"product_type": productType,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("coinbase: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("coinbase: create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// GetCharge fetches a charge by ID.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/charges/"+chargeID, nil)
	if err != nil {
		return nil, fmt.Errorf("coinbase: create request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CC-Api-Key", c.apiKey)
	req.Header.Set("X-CC-Version", apiVersion)
}

func (c *Client) do(req *http.Request) (*Charge, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coinbase: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coinbase: read response: %w", err)
	}

	var envelope chargeEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("coinbase: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "request failed"
		if envelope.Error != nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	return &envelope.Data, nil
}
