package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lillylight/Nako-backend/internal/astro"
	"github.com/lillylight/Nako-backend/internal/coinbase"
	"github.com/lillylight/Nako-backend/internal/config"
	"github.com/lillylight/Nako-backend/internal/openai"
	"github.com/lillylight/Nako-backend/internal/payments"
	"github.com/lillylight/Nako-backend/internal/ratelimit"
	"github.com/lillylight/Nako-backend/internal/reading"
	"github.com/lillylight/Nako-backend/internal/web"
)

var (
	serveAddr   string
	serveConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the Astroclock HTTP API server.

Examples:
  astroclock serve
  astroclock serve --addr :8080
  astroclock serve --config astroclock.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "path to YAML config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load(serveConfig)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	limiter := ratelimit.NewLimiter()
	defer limiter.Close()

	llm := openai.NewClient(cfg.OpenAI.APIKey)
	charges := coinbase.NewClient(cfg.Coinbase.APIKey)
	runner := astro.NewEphemerisRunner(cfg.Astro.EphemerisScript)
	predictor := reading.NewGenerator(llm, astro.NewGeocoder(llm), astro.NewSunProvider(llm), runner,
		reading.WithPersona(cfg.OpenAI.SystemPrompt))

	srv := web.NewServer(cfg, store, charges, limiter, predictor, runner)
	return srv.Run(cfg.Server.Addr)
}

// newStore picks the payment store: SQLite when a database path is
// configured, in-memory otherwise.
func newStore(cfg *config.Config) (payments.Store, error) {
	hook := func(p *payments.Payment) {
		slog.Info("payment completed", "chargeId", p.ChargeID, "status", p.Status)
	}

	if cfg.Payments.DBPath != "" {
		slog.Info("using sqlite payment store", "path", cfg.Payments.DBPath)
		return payments.NewSQLiteStore(cfg.Payments.DBPath, hook)
	}
	slog.Info("using in-memory payment store")
	return payments.NewMemoryStore(hook), nil
}
