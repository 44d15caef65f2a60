// Package web exposes the HTTP API: charge creation behind a rate limit,
// payment status checks, the Commerce webhook receiver, the ephemeris
// proxy, and the prediction endpoint.
package web

import (
	"context"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lillylight/Nako-backend/internal/coinbase"
	"github.com/lillylight/Nako-backend/internal/config"
	"github.com/lillylight/Nako-backend/internal/payments"
	"github.com/lillylight/Nako-backend/internal/ratelimit"
	"github.com/lillylight/Nako-backend/internal/reading"
)

// ChargeAPI is the vendor charge surface the handlers call.
type ChargeAPI interface {
	CreateCharge(ctx context.Context, amount, currency, customerID string) (*coinbase.Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*coinbase.Charge, error)
}

// Predictor runs the prediction pipeline.
type Predictor interface {
	Generate(ctx context.Context, birth reading.BirthData, photo []byte, photoMIME string) (string, error)
}

// EphemerisProxy runs the calculator subprocess and returns its raw
// stdout.
type EphemerisProxy interface {
	Run(ctx context.Context, input []byte) ([]byte, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg       *config.Config
	router    *gin.Engine
	store     payments.Store
	charges   ChargeAPI
	limiter   *ratelimit.Limiter
	predictor Predictor
	ephemeris EphemerisProxy
}

// NewServer wires the handlers to their dependencies and registers routes.
func NewServer(cfg *config.Config, store payments.Store, charges ChargeAPI, limiter *ratelimit.Limiter, predictor Predictor, ephemeris EphemerisProxy) *Server {
	router := gin.Default()

	s := &Server{
		cfg:       cfg,
		router:    router,
		store:     store,
		charges:   charges,
		limiter:   limiter,
		predictor: predictor,
		ephemeris: ephemeris,
	}

	corsCfg := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) == 1 && cfg.Server.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "x-payment-verified", "x-cc-webhook-signature")
	router.Use(cors.New(corsCfg))
	router.Use(requestID())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/create-charge", s.handleCreateCharge)
		api.POST("/check-payment", s.handleCheckPayment)
		api.POST("/webhook/coinbase", s.handleWebhook)
		api.POST("/generate-ephemeris-node", s.handleEphemeris)
		api.POST("/generate-reading", s.handleGenerateReading)
	}

	return s
}

// Run starts the server.
func (s *Server) Run(addr string) error {
	slog.Info("listening", "addr", addr)
	return s.router.Run(addr)
}

// requestID tags each request with an identifier for log correlation,
// honoring one supplied by a proxy.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
