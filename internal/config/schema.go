package config

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Coinbase CoinbaseConfig `yaml:"coinbase" mapstructure:"coinbase"`
	OpenAI   OpenAIConfig   `yaml:"openai" mapstructure:"openai"`
	Payments PaymentsConfig `yaml:"payments" mapstructure:"payments"`
	Astro    AstroConfig    `yaml:"astro" mapstructure:"astro"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`

	// AllowedOrigins for CORS; "*" permits any origin.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// CoinbaseConfig configures the Commerce API integration.
type CoinbaseConfig struct {
	// APIKey authenticates charge creation and lookup.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// WebhookSecret verifies webhook signatures.
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`

	// ProductID is the hosted checkout product, exposed to the frontend.
	ProductID string `yaml:"product_id" mapstructure:"product_id"`
}

// OpenAIConfig configures the language-model calls.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// SystemPrompt overrides the astrologer persona for the short-form
	// prediction path. Empty uses the built-in prompts.
	SystemPrompt string `yaml:"system_prompt" mapstructure:"system_prompt"`
}

// PaymentsConfig configures the payment store and charge defaults.
type PaymentsConfig struct {
	// DBPath selects the SQLite store; empty keeps payments in memory.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	Amount   string `yaml:"amount" mapstructure:"amount"`
	Currency string `yaml:"currency" mapstructure:"currency"`
}

// AstroConfig configures the ephemeris subprocess and the public API base.
type AstroConfig struct {
	// EphemerisScript is the calculator script path.
	EphemerisScript string `yaml:"ephemeris_script" mapstructure:"ephemeris_script"`

	// PublicAPIURL is the externally reachable base URL of this service.
	PublicAPIURL string `yaml:"public_api_url" mapstructure:"public_api_url"`
}
