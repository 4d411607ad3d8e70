// Package config provides configuration management for the trading agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Strategy      StrategyConfig     `mapstructure:"strategy"`
	Exchange      ExchangeConfig     `mapstructure:"exchange"`
	Account       AccountConfig      `mapstructure:"account"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// StrategyConfig holds the credit-spread strategy parameters.
type StrategyConfig struct {
	IVSpikePct         float64 `mapstructure:"iv_spike_pct"`
	ProtectionWidthPct float64 `mapstructure:"protection_width_pct"`
	TargetProfitPct    float64 `mapstructure:"target_profit_pct"`
	RiskPerTradePct    float64 `mapstructure:"risk_per_trade_pct"`
	MaxTimeMinutes     float64 `mapstructure:"max_time_minutes"`

	// MinTimeToExpiryMinutes is declared for config compatibility with the
	// strategy's documented parameter set but is consulted by no entry or
	// exit rule.
	MinTimeToExpiryMinutes float64 `mapstructure:"min_tte_minutes"`
}

// ExchangeConfig holds Delta Exchange connection settings.
type ExchangeConfig struct {
	Testnet        bool          `mapstructure:"testnet"`
	Symbol         string        `mapstructure:"symbol"`
	ChainLimit     int           `mapstructure:"chain_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BaseURL returns the REST base URL for the configured environment.
func (e ExchangeConfig) BaseURL() string {
	if e.Testnet {
		return "https://testnet-api.delta.exchange"
	}
	return "https://api.delta.exchange"
}

// AccountConfig holds simulated account settings.
type AccountConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// Credentials holds API credentials.
type Credentials struct {
	Delta DeltaCredentials `mapstructure:"delta"`
}

// DeltaCredentials holds Delta Exchange API credentials.
type DeltaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// DefaultStrategyConfig returns the documented strategy defaults.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		IVSpikePct:             10,
		ProtectionWidthPct:     3.0,
		TargetProfitPct:        40,
		RiskPerTradePct:        1.5,
		MaxTimeMinutes:         30,
		MinTimeToExpiryMinutes: 45,
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/ivcrush-trader"
	}
	return filepath.Join(home, ".config", "ivcrush-trader")
}

// DefaultStatePath returns the default SQLite state database path.
func DefaultStatePath() string {
	return filepath.Join(DefaultConfigDir(), "ivcrush.db")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files
// produce templates and the documented defaults; they are not fatal.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// First run: write a template and continue with defaults.
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	def := DefaultStrategyConfig()
	v.SetDefault("strategy.iv_spike_pct", def.IVSpikePct)
	v.SetDefault("strategy.protection_width_pct", def.ProtectionWidthPct)
	v.SetDefault("strategy.target_profit_pct", def.TargetProfitPct)
	v.SetDefault("strategy.risk_per_trade_pct", def.RiskPerTradePct)
	v.SetDefault("strategy.max_time_minutes", def.MaxTimeMinutes)
	v.SetDefault("strategy.min_tte_minutes", def.MinTimeToExpiryMinutes)

	v.SetDefault("exchange.testnet", true)
	v.SetDefault("exchange.symbol", "BTCUSD")
	v.SetDefault("exchange.chain_limit", 20)
	v.SetDefault("exchange.request_timeout", "5s")

	v.SetDefault("account.initial_balance", 10000.0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9187")

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.webhook.enabled", false)
	v.SetDefault("notifications.webhook.url", "")
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DELTA_API_KEY"); v != "" {
		cfg.Credentials.Delta.APIKey = v
	}
	if v := os.Getenv("DELTA_API_SECRET"); v != "" {
		cfg.Credentials.Delta.APISecret = v
	}
	if v := os.Getenv("DELTA_TESTNET"); v != "" {
		cfg.Exchange.Testnet = v != "false" && v != "0"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.IVSpikePct < 0 {
		return fmt.Errorf("iv_spike_pct must be non-negative")
	}
	if s.ProtectionWidthPct <= 0 {
		return fmt.Errorf("protection_width_pct must be positive")
	}
	if s.TargetProfitPct <= 0 || s.TargetProfitPct > 100 {
		return fmt.Errorf("target_profit_pct must be between 0 and 100")
	}
	if s.RiskPerTradePct <= 0 || s.RiskPerTradePct > 100 {
		return fmt.Errorf("risk_per_trade_pct must be between 0 and 100")
	}
	if s.MaxTimeMinutes <= 0 {
		return fmt.Errorf("max_time_minutes must be positive")
	}
	if s.MinTimeToExpiryMinutes < 0 {
		return fmt.Errorf("min_tte_minutes must be non-negative")
	}

	if c.Exchange.Symbol == "" {
		return fmt.Errorf("exchange symbol must not be empty")
	}
	if c.Exchange.ChainLimit <= 0 {
		return fmt.Errorf("chain_limit must be positive")
	}
	if c.Exchange.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	if c.Account.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be positive")
	}

	return nil
}
