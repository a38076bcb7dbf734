package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/farewatch/farewatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

// redacted returns a copy of the config with credentials masked.
func redacted(c *config.Config) config.Config {
	cp := *c
	if cp.Duffel.Token != "" {
		cp.Duffel.Token = "***"
	}
	if cp.Slack.WebhookURL != "" {
		cp.Slack.WebhookURL = "***"
	}
	return cp
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
