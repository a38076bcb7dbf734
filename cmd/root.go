package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farewatch/farewatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "farewatch",
	Short: "Flight fare grid watcher",
	Long:  "Searches Duffel across a grid of departure/return date combinations, picks the cheapest mixed-cabin round trip, and alerts Slack when it drops under the configured threshold.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
