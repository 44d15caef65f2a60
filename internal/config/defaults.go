package config

import "os"

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":3001",
			AllowedOrigins: []string{"*"},
		},
		Payments: PaymentsConfig{
			Amount:   "1.00",
			Currency: "USDC",
		},
		Astro: AstroConfig{
			EphemerisScript: "astro_sweph_api.py",
		},
	}
}

// WriteDefault writes a commented starter configuration to path.
func WriteDefault(path string) error {
	content := `# Astroclock service configuration
# Secrets (API keys, webhook secret) are normally supplied through the
# environment; values set here are overridden by environment variables.

server:
  addr: ":3001"
  allowed_origins:
    - "*"

coinbase:
  # api_key: ""
  # webhook_secret: ""
  # product_id: ""

openai:
  # api_key: ""
  # system_prompt: ""

payments:
  # Leave db_path empty to keep payment records in memory.
  # db_path: astroclock.db
  amount: "1.00"
  currency: "USDC"

astro:
  ephemeris_script: astro_sweph_api.py
  # public_api_url: "https://example.com"
`
	return os.WriteFile(path, []byte(content), 0o644)
}
