package extension

import "time"

// Config holds the wallet extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.wallet" or "wallet" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration. The library ships no
	// HTTP surface today, so this is only honored by external route adapters.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for wallet routes (default: "/wallet").
	// Like DisableRoutes, it only matters to external route adapters.
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// UsageBatchSize is the number of usage records to buffer before flushing
	// to the store (default: 100).
	UsageBatchSize int `json:"usage_batch_size" mapstructure:"usage_batch_size" yaml:"usage_batch_size"`

	// UsageFlushInterval is how frequently the usage buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	UsageFlushInterval time.Duration `json:"usage_flush_interval" mapstructure:"usage_flush_interval" yaml:"usage_flush_interval"`

	// Gateway holds the payment gateway settings. When Endpoint is non-empty
	// the extension constructs a gateway client and recharge settlement
	// becomes available.
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway" yaml:"gateway"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// GatewayConfig mirrors gateway.Config for YAML binding.
type GatewayConfig struct {
	Endpoint            string `json:"endpoint" mapstructure:"endpoint" yaml:"endpoint"`
	PID                 string `json:"pid" mapstructure:"pid" yaml:"pid"`
	Secret              string `json:"secret" mapstructure:"secret" yaml:"secret"`
	PrivateKeyPEM       string `json:"private_key_pem" mapstructure:"private_key_pem" yaml:"private_key_pem"`
	GatewayPublicKeyPEM string `json:"gateway_public_key_pem" mapstructure:"gateway_public_key_pem" yaml:"gateway_public_key_pem"`
	SignType            string `json:"sign_type" mapstructure:"sign_type" yaml:"sign_type"`
	NotifyURL           string `json:"notify_url" mapstructure:"notify_url" yaml:"notify_url"`
	ReturnURL           string `json:"return_url" mapstructure:"return_url" yaml:"return_url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:           "/wallet",
		UsageBatchSize:     100,
		UsageFlushInterval: 5 * time.Second,
	}
}
