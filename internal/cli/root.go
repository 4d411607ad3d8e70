package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ivcrush-trader/internal/config"
	"ivcrush-trader/internal/engine"
	"ivcrush-trader/internal/logging"
	"ivcrush-trader/internal/market"
	"ivcrush-trader/internal/notify"
	"ivcrush-trader/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Engine *engine.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	delta := market.NewDeltaClient(market.DeltaConfig{
		BaseURL:    cfg.Exchange.BaseURL(),
		APIKey:     cfg.Credentials.Delta.APIKey,
		APISecret:  cfg.Credentials.Delta.APISecret,
		Symbol:     cfg.Exchange.Symbol,
		ChainLimit: cfg.Exchange.ChainLimit,
		Timeout:    cfg.Exchange.RequestTimeout,
	}, logger)
	synthetic := market.NewSynthetic(0)
	provider := market.NewFallback(delta, synthetic, logger)

	var stateStore store.StateStore
	sqlStore, err := store.NewSQLiteStore(config.DefaultStatePath())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize state store, running without persistence")
	} else {
		stateStore = sqlStore
	}

	app.Engine = engine.New(engine.Options{
		Strategy:       cfg.Strategy,
		Symbol:         cfg.Exchange.Symbol,
		InitialBalance: cfg.Account.InitialBalance,
		Provider:       provider,
		Synthetic:      synthetic,
		Store:          stateStore,
		Notifier:       notify.NewManager(cfg.Notifications),
		Logger:         logger,
	})

	rootCmd := &cobra.Command{
		Use:   "ivcrush",
		Short: "IV crush reversal trader for Delta Exchange credit spreads",
		Long: `IV Crush Trader is an automated options-trading agent for the Delta
crypto derivatives exchange.

It polls market data, looks for implied-volatility spikes confirmed by a
liquidity-sweep candle pattern, and opens simulated vertical credit spreads
sized against the account's risk budget. Positions are analytical constructs
managed by a theta-decay model; no real orders are routed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/ivcrush-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addRunCommand(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("IV Crush Trader v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Strategy")
	output.Printf("  IV Spike:          %.1f%%\n", cfg.Strategy.IVSpikePct)
	output.Printf("  Protection Width:  %.1f%%\n", cfg.Strategy.ProtectionWidthPct)
	output.Printf("  Target Profit:     %.1f%%\n", cfg.Strategy.TargetProfitPct)
	output.Printf("  Risk Per Trade:    %.2f%%\n", cfg.Strategy.RiskPerTradePct)
	output.Printf("  Max Time:          %.0f min\n", cfg.Strategy.MaxTimeMinutes)
	output.Printf("  Min TTE:           %.0f min\n", cfg.Strategy.MinTimeToExpiryMinutes)
	output.Println()

	output.Bold("Exchange")
	output.Printf("  Testnet:           %v\n", cfg.Exchange.Testnet)
	output.Printf("  Symbol:            %s\n", cfg.Exchange.Symbol)
	output.Printf("  Chain Limit:       %d\n", cfg.Exchange.ChainLimit)
	output.Printf("  Request Timeout:   %s\n", cfg.Exchange.RequestTimeout)
	output.Println()

	output.Bold("Account")
	output.Printf("  Initial Balance:   %.2f\n", cfg.Account.InitialBalance)
	output.Println()

	output.Bold("Metrics")
	output.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
	output.Printf("  Listen Addr:       %s\n", cfg.Metrics.ListenAddr)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:           %v\n", cfg.Notifications.Enabled)
	output.Printf("  Webhook:           %v\n", cfg.Notifications.Webhook.Enabled)

	return nil
}
