package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithMissingFilesUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	def := DefaultStrategyConfig()
	if cfg.Strategy != def {
		t.Errorf("Strategy = %+v, want defaults %+v", cfg.Strategy, def)
	}
	if cfg.Exchange.Symbol != "BTCUSD" {
		t.Errorf("Symbol = %q, want BTCUSD", cfg.Exchange.Symbol)
	}
	if !cfg.Exchange.Testnet {
		t.Error("Testnet must default to true")
	}
	if cfg.Account.InitialBalance != 10000 {
		t.Errorf("InitialBalance = %.2f, want 10000", cfg.Account.InitialBalance)
	}

	// First run writes templates for the next run to edit.
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("config template was not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "credentials.toml")); err != nil {
		t.Errorf("credentials template was not created: %v", err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()

	content := `
[strategy]
iv_spike_pct = 12.5
protection_width_pct = 2.0
target_profit_pct = 50.0
risk_per_trade_pct = 2.0
max_time_minutes = 45.0
min_tte_minutes = 60.0

[exchange]
testnet = false
symbol = "ETHUSD"
chain_limit = 10
request_timeout = "3s"

[account]
initial_balance = 25000.0
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Strategy.IVSpikePct != 12.5 {
		t.Errorf("IVSpikePct = %v, want 12.5", cfg.Strategy.IVSpikePct)
	}
	if cfg.Exchange.Symbol != "ETHUSD" {
		t.Errorf("Symbol = %q, want ETHUSD", cfg.Exchange.Symbol)
	}
	if cfg.Exchange.Testnet {
		t.Error("Testnet must be false when the file disables it")
	}
	if cfg.Account.InitialBalance != 25000 {
		t.Errorf("InitialBalance = %v, want 25000", cfg.Account.InitialBalance)
	}
	if cfg.Exchange.BaseURL() != "https://api.delta.exchange" {
		t.Errorf("BaseURL = %q, want production URL", cfg.Exchange.BaseURL())
	}
}

func TestEnvOverridesCredentials(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("DELTA_API_KEY", "env-key")
	t.Setenv("DELTA_API_SECRET", "env-secret")
	t.Setenv("DELTA_TESTNET", "false")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Credentials.Delta.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Credentials.Delta.APIKey)
	}
	if cfg.Credentials.Delta.APISecret != "env-secret" {
		t.Errorf("APISecret = %q, want env-secret", cfg.Credentials.Delta.APISecret)
	}
	if cfg.Exchange.Testnet {
		t.Error("DELTA_TESTNET=false must disable testnet")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Strategy: DefaultStrategyConfig(),
			Exchange: ExchangeConfig{
				Symbol:         "BTCUSD",
				ChainLimit:     20,
				RequestTimeout: 5e9,
			},
			Account: AccountConfig{InitialBalance: 10000},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative iv spike", func(c *Config) { c.Strategy.IVSpikePct = -1 }},
		{"zero width", func(c *Config) { c.Strategy.ProtectionWidthPct = 0 }},
		{"target above 100", func(c *Config) { c.Strategy.TargetProfitPct = 150 }},
		{"zero risk", func(c *Config) { c.Strategy.RiskPerTradePct = 0 }},
		{"zero max time", func(c *Config) { c.Strategy.MaxTimeMinutes = 0 }},
		{"negative min tte", func(c *Config) { c.Strategy.MinTimeToExpiryMinutes = -1 }},
		{"empty symbol", func(c *Config) { c.Exchange.Symbol = "" }},
		{"zero chain limit", func(c *Config) { c.Exchange.ChainLimit = 0 }},
		{"zero balance", func(c *Config) { c.Account.InitialBalance = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
