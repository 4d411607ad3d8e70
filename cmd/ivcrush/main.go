package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"ivcrush-trader/internal/cli"
	"ivcrush-trader/internal/config"
	"ivcrush-trader/internal/logging"
)

func main() {
	_ = godotenv.Load()

	configDir := config.DefaultConfigDir()
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
