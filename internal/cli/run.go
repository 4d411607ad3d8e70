package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ivcrush-trader/internal/metrics"
)

// addRunCommand adds the auto-trade loop command.
func addRunCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the automated trading loop",
		Long: `Starts the automated loop: on each tick the engine evaluates entry
conditions, opens a simulated spread when they are met, and manages open
positions against the exit rules. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyStrategyFlags(cmd, app)
			output := NewOutput(cmd)

			interval, _ := cmd.Flags().GetDuration("interval")
			if interval <= 0 {
				interval = 30 * time.Second
			}

			sessionID := uuid.New().String()
			logger := app.Logger.With().Str("session_id", sessionID).Logger()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logger.Info().Msg("Shutdown signal received")
				cancel()
			}()

			if app.Config.Metrics.Enabled {
				go metrics.Serve(ctx, app.Config.Metrics.ListenAddr, logger)
			}

			output.Info("Auto-trade session %s started (interval %s)", sessionID, interval)
			logger.Info().
				Dur("interval", interval).
				Str("symbol", app.Config.Exchange.Symbol).
				Msg("Auto-trade loop started")

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			// Run a pass immediately rather than waiting a full interval.
			app.runOnce(ctx, output, logger)

			for {
				select {
				case <-ctx.Done():
					logger.Info().Msg("Auto-trade loop stopped")
					output.Info("Session %s stopped", sessionID)
					return nil
				case <-ticker.C:
					app.runOnce(ctx, output, logger)
				}
			}
		},
	}
	cmd.Flags().Duration("interval", 30*time.Second, "polling interval")
	addStrategyFlags(cmd)
	return cmd
}

// runOnce performs a single evaluate/open/manage cycle. Every failure mode is
// logged and swallowed so the loop keeps running.
func (app *App) runOnce(ctx context.Context, output *Output, logger zerolog.Logger) {
	ready, sig := app.Engine.EvaluateEntry(ctx)
	if ready {
		pos, err := app.Engine.OpenPosition(ctx, "", sig.Price)
		if err != nil {
			logger.Warn().Err(err).Msg("Entry signal fired but position could not be opened")
		} else {
			output.Success("Opened position #%d: sell %.0f / buy %.0f, credit %.2f x%d",
				pos.ID, pos.SellStrike, pos.BuyStrike, pos.NetCredit, pos.Contracts)
		}
	}

	closed := app.Engine.ManagePositions(ctx)
	for _, pos := range closed {
		output.Printf("Closed #%d (%s): P&L %s after %.1f min\n",
			pos.ID, pos.ExitReason, output.PnLString(pos.PnL), pos.TimeInTrade)
	}
}
