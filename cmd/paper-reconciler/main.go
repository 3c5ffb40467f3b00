// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-reconciler CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/internal/secrets"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ and .env at startup.
	loadedSecrets map[string]string
	log           *logging.Logger
)

// secretDefault returns fallback when set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

var rootCmd = &cobra.Command{
	Use:   "paper-reconciler",
	Short: "Reconcile paper metadata from several extractors into one record",
	Long: `paper-reconciler collects title and author metadata for workshop
papers from two structural extractors, an LLM extractor and the DBLP index,
reconciles them into one canonical record per paper, and projects the result
into a Neo4j property graph.

Papers that cannot be resolved automatically are kept in a SQLite review
store; use "review list" to inspect them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.LoadAll(".secrets/", ".env")
		if err != nil {
			return err
		}
		loadedSecrets = s

		l, err := logging.New(viper.GetString("log_mode"))
		if err != nil {
			return err
		}
		log = l

		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./paper-reconciler.yaml or ~/.config/paper-reconciler/paper-reconciler.yaml)")
	flags.String("log-mode", "dev", "log output: dev (console) or prod (JSON)")
	flags.String("dictionary", "", "word frequency file for title spelling correction (default: embedded)")
	flags.String("catalogue-url", "", "catalogue base URL")
	flags.String("llm-provider", "", "LLM extractor backend: none, openai or claude")
	flags.String("llm-model", "", "LLM model identifier")
	flags.String("graph-uri", "", "Neo4j Bolt URI; empty disables projection")
	flags.String("review-db", "", "review database path; empty disables recording")
	flags.Int("workers", 0, "papers resolved concurrently")

	bind := map[string]string{
		"log_mode":           "log-mode",
		"catalogue.base_url": "catalogue-url",
		"llm.provider":       "llm-provider",
		"llm.model":          "llm-model",
		"graph.uri":          "graph-uri",
		"review.db_path":     "review-db",
		"pipeline.workers":   "workers",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-reconciler")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-reconciler"))
		}
	}

	setDefaults(viper.GetViper(), types.DefaultConfig())
	viper.SetEnvPrefix("PAPER_RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables such as PAPER_RECONCILER_GRAPH_URI are picked up by Unmarshal.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("log_mode", d.LogMode)

	v.SetDefault("catalogue.base_url", d.Catalogue.BaseURL)
	v.SetDefault("catalogue.timeout", d.Catalogue.Timeout)
	v.SetDefault("catalogue.user_agent", d.Catalogue.UserAgent)
	v.SetDefault("catalogue.requests_per_second", d.Catalogue.RequestsPerSecond)

	v.SetDefault("lookup.base_url", d.Lookup.BaseURL)
	v.SetDefault("lookup.timeout", d.Lookup.Timeout)
	v.SetDefault("lookup.user_agent", d.Lookup.UserAgent)
	v.SetDefault("lookup.requests_per_second", d.Lookup.RequestsPerSecond)
	v.SetDefault("lookup.max_hits", d.Lookup.MaxHits)
	v.SetDefault("lookup.cache_ttl", d.Lookup.CacheTTL)

	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.user_agent", d.LLM.UserAgent)
	v.SetDefault("llm.requests_per_second", d.LLM.RequestsPerSecond)
	v.SetDefault("llm.provider", string(d.LLM.Provider))
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.converter", string(d.LLM.Converter))

	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.user", d.Graph.User)
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", d.Graph.Database)
	v.SetDefault("graph.timeout", d.Graph.Timeout)

	v.SetDefault("review.db_path", d.Review.DBPath)

	v.SetDefault("pipeline.workers", d.Pipeline.Workers)
	v.SetDefault("pipeline.source_timeout", d.Pipeline.SourceTimeout)
	v.SetDefault("pipeline.project", d.Pipeline.Project)

	v.SetDefault("server.addr", d.Server.Addr)
}

// loadConfig decodes the merged configuration and fills secrets that were
// not set explicitly.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 1
	}
	switch cfg.LLM.Provider {
	case types.ProviderOpenAI:
		cfg.LLM.APIKey = secretDefault(secrets.OpenAIKey, cfg.LLM.APIKey)
	case types.ProviderClaude:
		cfg.LLM.APIKey = secretDefault(secrets.AnthropicKey, cfg.LLM.APIKey)
	}
	cfg.Graph.Password = secretDefault(secrets.Neo4jPassword, cfg.Graph.Password)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
