// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the extractor-merger CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Dudoxx/extractor-merger/internal/dudoxx"
	"github.com/Dudoxx/extractor-merger/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the extractor-merger CLI.
var rootCmd = &cobra.Command{
	Use:   "extractor-merger",
	Short: "Extract structured fields from long-form text",
	Long: `extractor-merger extracts structured field values from text too large
for a single model invocation. The input is split into overlapping segments,
each segment is sent to the DUDOXX extraction backend independently, and the
per-segment results are reconciled into one consistent record.

Run extraction jobs with the extract command; past runs are kept in a local
job history queryable through the jobs command.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./extractor-merger.yaml or ~/.config/extractor-merger/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("extractor-merger")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "extractor-merger"))
		}
	}

	viper.SetEnvPrefix("DUDOXX")
	viper.AutomaticEnv()

	// Defaults match the backend service's documented DUDOXX_* settings.
	viper.SetDefault("chunk_size", 1000)
	viper.SetDefault("chunk_overlap", 100)
	viper.SetDefault("min_chunk_size", 200)
	viper.SetDefault("max_threads", 5)
	viper.SetDefault("batch_size", 10)
	viper.SetDefault("unknown_value", "unknown")
	viper.SetDefault("date_format", "dd/mm/YYYY")
	viper.SetDefault("base_url", dudoxx.DefaultBaseURL)
	viper.SetDefault("model_name", dudoxx.DefaultModel)
	viper.SetDefault("request_timeout", "30s")
	viper.SetDefault("max_retries", 3)
	viper.SetDefault("retry_delay", "2s")
	viper.SetDefault("history_dir", "history")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	// A local .env provides DUDOXX_* variables during development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
