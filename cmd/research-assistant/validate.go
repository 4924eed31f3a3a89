// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the model API is reachable with the configured credentials",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{
			"model":   "research.model",
			"bedrock": "research.use_bedrock",
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		client, err := llm.Configure(cfg.Research.AIConfig, logging.New("llm"))
		if err != nil {
			printSetupHelp(os.Stderr)
			return err
		}
		if !llm.Validate(cmd.Context(), client, logging.New("llm")) {
			fmt.Printf("%s API key validation failed for %s\n", color.RedString("✗"), client.Model())
			return fmt.Errorf("validation failed")
		}
		fmt.Printf("%s %s is reachable\n", color.GreenString("✓"), client.Model())
		return nil
	},
}

func init() {
	validateCmd.Flags().String("model", "", "model identifier (default claude-sonnet-4-5)")
	validateCmd.Flags().Bool("bedrock", false, "route model calls through AWS Bedrock")
	rootCmd.AddCommand(validateCmd)
}
