// Package extension provides the Forge extension adapter for the wallet ledger.
//
// It implements the forge.Extension interface to integrate the wallet engine
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.wallet" or "wallet" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	wallet "github.com/kadxy/wallet"
	"github.com/kadxy/wallet/gateway"
	"github.com/kadxy/wallet/store"
	"github.com/kadxy/wallet/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "wallet"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Wallet ledger and payment settlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the wallet ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *wallet.Ledger
	store      store.Store
	walletOpts []wallet.Option
}

// New creates a new wallet Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *wallet.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the wallet engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildWalletOpts()
	if err != nil {
		return err
	}

	eng := wallet.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*wallet.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("wallet: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("wallet: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildWalletOpts constructs wallet.Option values from the resolved config.
func (e *Extension) buildWalletOpts() ([]wallet.Option, error) {
	opts := make([]wallet.Option, 0, len(e.walletOpts)+2)

	if e.config.UsageBatchSize > 0 || e.config.UsageFlushInterval > 0 {
		batchSize := e.config.UsageBatchSize
		flushInterval := e.config.UsageFlushInterval
		defaults := DefaultConfig()
		if batchSize == 0 {
			batchSize = defaults.UsageBatchSize
		}
		if flushInterval == 0 {
			flushInterval = defaults.UsageFlushInterval
		}
		opts = append(opts, wallet.WithUsageConfig(batchSize, flushInterval))
	}

	if e.config.Gateway.Endpoint != "" {
		client, err := gateway.NewClient(gateway.Config{
			Endpoint:            e.config.Gateway.Endpoint,
			PID:                 e.config.Gateway.PID,
			Secret:              e.config.Gateway.Secret,
			PrivateKeyPEM:       e.config.Gateway.PrivateKeyPEM,
			GatewayPublicKeyPEM: e.config.Gateway.GatewayPublicKeyPEM,
			SignType:            gateway.SignType(e.config.Gateway.SignType),
			NotifyURL:           e.config.Gateway.NotifyURL,
			ReturnURL:           e.config.Gateway.ReturnURL,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, wallet.WithGateway(client))
	}

	// Append any pass-through wallet options.
	opts = append(opts, e.walletOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("wallet: configuration is required but not found in config files; " +
				"ensure 'extensions.wallet' or 'wallet' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("wallet: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("usage_batch_size", e.config.UsageBatchSize),
		forge.F("usage_flush_interval", e.config.UsageFlushInterval),
		forge.F("gateway_configured", e.config.Gateway.Endpoint != ""),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.wallet" first (namespaced pattern).
	if cm.IsSet("extensions.wallet") {
		if err := cm.Bind("extensions.wallet", &cfg); err == nil {
			e.Logger().Debug("wallet: loaded config from file",
				forge.F("key", "extensions.wallet"),
			)
			return cfg, true
		}
		e.Logger().Warn("wallet: failed to bind extensions.wallet config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "wallet" key.
	if cm.IsSet("wallet") {
		if err := cm.Bind("wallet", &cfg); err == nil {
			e.Logger().Debug("wallet: loaded config from file",
				forge.F("key", "wallet"),
			)
			return cfg, true
		}
		e.Logger().Warn("wallet: failed to bind wallet config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.UsageBatchSize == 0 {
		cfg.UsageBatchSize = defaults.UsageBatchSize
	}
	if cfg.UsageFlushInterval == 0 {
		cfg.UsageFlushInterval = defaults.UsageFlushInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.UsageBatchSize == 0 && programmaticConfig.UsageBatchSize != 0 {
		yamlConfig.UsageBatchSize = programmaticConfig.UsageBatchSize
	}
	if yamlConfig.UsageFlushInterval == 0 && programmaticConfig.UsageFlushInterval != 0 {
		yamlConfig.UsageFlushInterval = programmaticConfig.UsageFlushInterval
	}
	if yamlConfig.Gateway.Endpoint == "" && programmaticConfig.Gateway.Endpoint != "" {
		yamlConfig.Gateway = programmaticConfig.Gateway
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
