package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Prints the merged configuration after defaults, config file, and environment overrides. Secrets are redacted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := *cfg
		if redacted.Feed.Key != "" {
			redacted.Feed.Key = "(set)"
		}
		if redacted.Gemini.Key != "" {
			redacted.Gemini.Key = "(set)"
		}
		if redacted.Store.DatabaseURL != "" {
			redacted.Store.DatabaseURL = "(set)"
		}

		return yaml.NewEncoder(os.Stdout).Encode(redacted)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
