package cli

import (
	"time"

	"github.com/spf13/cobra"

	"ivcrush-trader/internal/models"
)

// addTradeCommands adds trading commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSignalCmd(app))
	rootCmd.AddCommand(newOpenCmd(app))
	rootCmd.AddCommand(newManageCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newBalanceCmd(app))
}

// addStrategyFlags registers flags that override strategy parameters for a
// single invocation.
func addStrategyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("iv-spike", 0, "IV spike threshold percent")
	cmd.Flags().Float64("width", 0, "protection width as percent of spot")
	cmd.Flags().Float64("target", 0, "profit target percent of net credit")
	cmd.Flags().Float64("risk", 0, "risk per trade as percent of balance")
	cmd.Flags().Float64("max-time", 0, "maximum time in trade, minutes")
}

// applyStrategyFlags folds any explicitly set strategy flags into the engine.
func applyStrategyFlags(cmd *cobra.Command, app *App) {
	strategy := app.Engine.Strategy()
	changed := false

	if cmd.Flags().Changed("iv-spike") {
		strategy.IVSpikePct, _ = cmd.Flags().GetFloat64("iv-spike")
		changed = true
	}
	if cmd.Flags().Changed("width") {
		strategy.ProtectionWidthPct, _ = cmd.Flags().GetFloat64("width")
		changed = true
	}
	if cmd.Flags().Changed("target") {
		strategy.TargetProfitPct, _ = cmd.Flags().GetFloat64("target")
		changed = true
	}
	if cmd.Flags().Changed("risk") {
		strategy.RiskPerTradePct, _ = cmd.Flags().GetFloat64("risk")
		changed = true
	}
	if cmd.Flags().Changed("max-time") {
		strategy.MaxTimeMinutes, _ = cmd.Flags().GetFloat64("max-time")
		changed = true
	}

	if changed {
		app.Engine.SetStrategy(strategy)
	}
}

func newSignalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Evaluate current entry conditions",
		Long: `Fetches spot price, option chain IV and recent candles, then reports
whether the entry conditions (IV spike, liquidity sweep, IV sufficiency)
are all met.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyStrategyFlags(cmd, app)
			output := NewOutput(cmd)

			ready, sig := app.Engine.EvaluateEntry(cmd.Context())

			if output.IsJSON() {
				return output.JSON(sig)
			}

			printSignal(output, sig)
			if ready {
				output.Success("Entry conditions met")
			} else {
				output.Info("Entry conditions not met")
			}
			return nil
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func printSignal(output *Output, sig models.Signal) {
	output.Bold("Market Signal")
	if sig.Synthetic {
		output.Warning("  Using SYNTHETIC data (exchange unavailable)")
	}
	output.Printf("  Spot:       %.2f\n", sig.Price)
	output.Printf("  ATM IV:     %.2f%%\n", sig.ATMIV)
	output.Printf("  Rolling IV: %.2f%%\n", sig.RollingIV)
	output.Printf("  IV Spike:   %v\n", sig.IVSpike)
	output.Printf("  Sweep:      %v\n", sig.Sweep)
	output.Printf("  IV >= 30:   %v\n", sig.IVSufficient)
}

func newOpenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a simulated credit spread",
		Long: `Builds a vertical credit spread around the current spot price, sizes it
against the configured risk budget and records it as an open position.
No real orders are placed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyStrategyFlags(cmd, app)
			output := NewOutput(cmd)

			spot, _ := cmd.Flags().GetFloat64("spot")

			pos, err := app.Engine.OpenPosition(cmd.Context(), "", spot)
			if err != nil {
				output.Error("Failed to open position: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(pos)
			}

			output.Success("Opened position #%d", pos.ID)
			printPosition(output, *pos)
			return nil
		},
	}
	cmd.Flags().Float64("spot", 0, "override spot price instead of fetching")
	addStrategyFlags(cmd)
	return cmd
}

func printPosition(output *Output, pos models.Position) {
	output.Printf("  Symbol:      %s\n", pos.Symbol)
	output.Printf("  Entry Spot:  %.2f\n", pos.EntrySpot)
	output.Printf("  Sell Strike: %.0f\n", pos.SellStrike)
	output.Printf("  Buy Strike:  %.0f\n", pos.BuyStrike)
	output.Printf("  Net Credit:  %.2f\n", pos.NetCredit)
	output.Printf("  Max Loss:    %.2f\n", pos.MaxLoss)
	output.Printf("  Contracts:   %d\n", pos.Contracts)
}

func newManageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Run one management pass over open positions",
		Long: `Evaluates every open position against the exit rules (profit target,
stop loss, time exit, proximity to the sold strike) and closes any that
qualify.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyStrategyFlags(cmd, app)
			output := NewOutput(cmd)

			closed := app.Engine.ManagePositions(cmd.Context())

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"closed": closed,
				})
			}

			if len(closed) == 0 {
				output.Info("No positions closed")
				return nil
			}
			for _, pos := range closed {
				output.Printf("Closed #%d (%s): P&L %s after %.1f min\n",
					pos.ID, pos.ExitReason, output.PnLString(pos.PnL), pos.TimeInTrade)
			}
			return nil
		},
	}
	addStrategyFlags(cmd)
	return cmd
}

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			openOnly, _ := cmd.Flags().GetBool("open")

			positions := app.Engine.Positions()
			if openOnly {
				filtered := positions[:0]
				for _, pos := range positions {
					if pos.IsOpen() {
						filtered = append(filtered, pos)
					}
				}
				positions = filtered
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}

			if len(positions) == 0 {
				output.Info("No positions")
				return nil
			}

			output.Bold("%-4s %-10s %-7s %-9s %-9s %-9s %-5s %-13s %-10s",
				"ID", "SYMBOL", "STATUS", "SELL", "BUY", "CREDIT", "QTY", "REASON", "P&L")
			for _, pos := range positions {
				reason := "-"
				pnl := "-"
				if !pos.IsOpen() {
					reason = string(pos.ExitReason)
					pnl = output.PnLString(pos.PnL)
				}
				output.Printf("%-4d %-10s %-7s %-9.0f %-9.0f %-9.2f %-5d %-13s %-10s\n",
					pos.ID, pos.Symbol, pos.Status, pos.SellStrike, pos.BuyStrike,
					pos.NetCredit, pos.Contracts, reason, pnl)
			}
			return nil
		},
	}
	cmd.Flags().Bool("open", false, "show only open positions")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate trading statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			stats := app.Engine.Stats()

			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Bold("Trading Statistics")
			output.Printf("  Total Trades:   %d\n", stats.TotalTrades)
			output.Printf("  Win Rate:       %.1f%%\n", stats.WinRate)
			output.Printf("  Avg P&L:        %s\n", output.PnLString(stats.AvgPnL))
			output.Printf("  Total P&L:      %s\n", output.PnLString(stats.TotalPnL))
			output.Printf("  Balance:        %.2f\n", stats.Balance)
			output.Printf("  Open Positions: %d\n", stats.OpenPositions)
			return nil
		},
	}
}

func newBalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show current account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			balance := app.Engine.Balance()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"balance":   balance,
					"timestamp": time.Now().UTC(),
				})
			}

			output.Printf("Balance: %.2f\n", balance)
			return nil
		},
	}
}
