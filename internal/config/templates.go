package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# IV Crush Trader Configuration

[strategy]
# IV spike threshold over the rolling baseline, in percent
iv_spike_pct = 10.0
# Protective width of the spread as a percent of spot
protection_width_pct = 3.0
# Close the position once this percent of the credit is captured
target_profit_pct = 40.0
# Account risk allocated to a single trade, in percent
risk_per_trade_pct = 1.5
# Force-exit positions after this many minutes
max_time_minutes = 30.0
# Declared strategy parameter; not consulted by any entry or exit rule
min_tte_minutes = 45.0

[exchange]
# Use the Delta Exchange testnet
testnet = true
# Underlying symbol
symbol = "BTCUSD"
# Maximum option instruments sampled from the chain
chain_limit = 20
# Per-request network timeout
request_timeout = "5s"

[account]
# Starting balance of the simulated account
initial_balance = 10000.0

[metrics]
# Serve Prometheus metrics during auto-trading
enabled = false
listen_addr = ":9187"

[notifications]
enabled = false

[notifications.webhook]
enabled = false
url = ""
`

const credentialsTemplate = `# IV Crush Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[delta]
api_key = ""
api_secret = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Restricted permissions for credentials
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
