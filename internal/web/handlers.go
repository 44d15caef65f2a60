package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lillylight/Nako-backend/internal/astro"
	"github.com/lillylight/Nako-backend/internal/coinbase"
	"github.com/lillylight/Nako-backend/internal/ratelimit"
	"github.com/lillylight/Nako-backend/internal/reading"
)

const maxPhotoSize = 10 << 20 // 10MB

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// clientIP resolves the caller's address for rate limiting, preferring
// proxy headers.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		if idx := strings.Index(ip, ","); idx >= 0 {
			ip = ip[:idx]
		}
		return strings.TrimSpace(ip)
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return "unknown-ip"
}

type createChargeBody struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CustomerID string `json:"customerId"`
}

func (s *Server) handleCreateCharge(c *gin.Context) {
	ip := clientIP(c)

	rl := s.limiter.Check(ip, ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	c.Header("X-RateLimit-Limit", strconv.Itoa(ratelimit.DefaultLimit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(rl.ResetTime.UnixMilli(), 10))
	if !rl.Allowed {
		slog.Warn("rate limit exceeded", "ip", ip)
		retryAfter := int(time.Until(rl.ResetTime).Seconds()) + 1
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "Rate limit exceeded. Please try again later.",
			"resetTime": rl.ResetTime.UTC().Format(time.RFC3339),
		})
		return
	}

	// The body is optional; absent fields fall back to configured
	// defaults.
	var body createChargeBody
	_ = c.ShouldBindJSON(&body)
	if body.Amount == "" {
		body.Amount = s.cfg.Payments.Amount
	}
	if body.Currency == "" {
		body.Currency = s.cfg.Payments.Currency
	}
	if body.CustomerID == "" {
		body.CustomerID = "anonymous"
	}

	charge, err := s.charges.CreateCharge(c.Request.Context(), body.Amount, body.Currency, body.CustomerID)
	if err != nil {
		s.renderChargeError(c, err, "Failed to create charge")
		return
	}

	metadata := map[string]any{
		"hosted_url":   charge.HostedURL,
		"created_at":   charge.CreatedAt,
		"product_type": "birth_time_prediction",
	}
	local := charge.Pricing.Local
	if _, err := s.store.Create(charge.ID, charge.Code, local.Amount, local.Currency, body.CustomerID, metadata); err != nil {
		// A charge without a local record cannot be verified later, so
		// the whole operation fails from the caller's perspective.
		slog.Error("payment record creation failed", "chargeId", charge.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Payment verification failed. Please retry your payment.",
		})
		return
	}

	slog.Info("charge created", "chargeId", charge.ID, "code", charge.Code)
	c.JSON(http.StatusOK, gin.H{
		"id":         charge.ID,
		"code":       charge.Code,
		"hosted_url": charge.HostedURL,
		"created_at": charge.CreatedAt,
		"pricing":    charge.Pricing,
	})
}

// renderChargeError maps vendor client failures onto HTTP responses.
func (s *Server) renderChargeError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, coinbase.ErrNoAPIKey) {
		slog.Error("commerce API key not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	}

	var apiErr *coinbase.APIError
	if errors.As(err, &apiErr) {
		slog.Error("commerce API error", "status", apiErr.Status, "message", apiErr.Message)
		if apiErr.Status == http.StatusTooManyRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later."})
			return
		}
		msg := apiErr.Message
		if msg == "" || msg == "request failed" {
			msg = fallback
		}
		c.JSON(apiErr.Status, gin.H{"error": msg})
		return
	}

	slog.Error("commerce API unreachable", "error", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Network error when connecting to Coinbase Commerce API",
	})
}

type checkPaymentBody struct {
	ChargeID string `json:"chargeId"`
}

func (s *Server) handleCheckPayment(c *gin.Context) {
	var body checkPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.ChargeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Charge ID is required"})
		return
	}

	// Local records first; they reflect webhook updates without a vendor
	// round trip.
	payment, err := s.store.Get(body.ChargeID)
	if err != nil {
		slog.Error("payment lookup failed", "chargeId", body.ChargeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
		return
	}
	if payment != nil {
		status := payment.Status
		c.JSON(http.StatusOK, gin.H{
			"chargeId":    body.ChargeID,
			"status":      strings.ToUpper(string(status)),
			"isCompleted": status.Paid(),
			"isPending":   status == "pending",
			"isExpired":   status == "expired",
			"isCanceled":  status == "canceled",
			"localRecord": true,
			"payment":     payment,
		})
		return
	}

	slog.Info("no local payment record, checking vendor", "chargeId", body.ChargeID)

	charge, err := s.charges.GetCharge(c.Request.Context(), body.ChargeID)
	if err != nil {
		s.renderChargeError(c, err, "Failed to check charge")
		return
	}

	status := charge.LatestStatus()
	c.JSON(http.StatusOK, gin.H{
		"chargeId":    body.ChargeID,
		"status":      status,
		"isCompleted": status == "COMPLETED",
		"isPending":   status == "PENDING",
		"isExpired":   status == "EXPIRED",
		"isCanceled":  status == "CANCELED",
		"localRecord": false,
		"timeline":    charge.Timeline,
		"payments":    charge.Payments,
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	signature := c.GetHeader(coinbase.SignatureHeader)
	if err := coinbase.VerifySignature(s.cfg.Coinbase.WebhookSecret, rawBody, signature); err != nil {
		switch {
		case errors.Is(err, coinbase.ErrNoSecret):
			slog.Error("webhook secret not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		case errors.Is(err, coinbase.ErrNoSignature):
			slog.Warn("webhook without signature", "ip", clientIP(c))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No signature found"})
		default:
			slog.Warn("webhook signature mismatch", "ip", clientIP(c))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		}
		return
	}

	event, err := coinbase.ParseWebhook(rawBody)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	slog.Info("webhook event", "type", event.Type, "chargeId", event.Data.ID)

	if status, ok := coinbase.EventStatus(event.Type); ok {
		updated, err := s.store.UpdateStatus(event.Data.ID, status)
		if err != nil {
			slog.Error("payment status update failed", "chargeId", event.Data.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if updated == nil {
			// Not fatal to the response; failing here would only trigger
			// vendor retry storms for a charge we never recorded.
			slog.Warn("webhook for unknown charge", "chargeId", event.Data.ID, "type", event.Type)
		}
	} else {
		slog.Info("unhandled webhook event type", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleEphemeris(c *gin.Context) {
	input, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	out, err := s.ephemeris.Run(c.Request.Context(), input)
	if err != nil {
		var scriptErr *astro.ScriptError
		if errors.As(err, &scriptErr) {
			slog.Error("ephemeris script failed", "exitCode", scriptErr.ExitCode)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Python script error",
				"details": scriptErr.Stderr,
			})
			return
		}
		slog.Error("ephemeris run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Server error",
			"details": err.Error(),
		})
		return
	}

	if !json.Valid(out) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to parse Python output",
			"details": string(out),
		})
		return
	}

	c.Data(http.StatusOK, "application/json", out)
}

func (s *Server) handleGenerateReading(c *gin.Context) {
	// Payment gate comes before any parsing; unverified callers get no
	// paid work at all.
	if c.GetHeader("x-payment-verified") != "true" {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Payment has not been verified. Please complete your payment before requesting a prediction.",
		})
		return
	}

	birthDataJSON := c.PostForm("birthData")
	if birthDataJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Birth data is required"})
		return
	}

	var birth reading.BirthData
	if err := json.Unmarshal([]byte(birthDataJSON), &birth); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid birth data format"})
		return
	}

	var photo []byte
	var photoMIME string
	if file, err := c.FormFile("photo"); err == nil && file != nil {
		if file.Size > maxPhotoSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Photo exceeds maximum size of 10MB"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid photo upload"})
			return
		}
		defer f.Close()
		photo, err = io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid photo upload"})
			return
		}
		photoMIME = file.Header.Get("Content-Type")
	}

	prediction, err := s.predictor.Generate(c.Request.Context(), birth, photo, photoMIME)
	if err != nil {
		slog.Error("reading generation failed", "error", err)
		if reading.IsTimeout(err) {
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "The request took too long. Please try again with a simpler description.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reading"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"prediction": prediction})
}
