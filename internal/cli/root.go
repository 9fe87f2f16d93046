// Package cli implements the parley command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/pkg/config"
	"github.com/parley-chat/parley/pkg/session"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Streaming chat client with reasoning display and session history",
	Long: `Parley is a terminal chat client for streaming model providers.

Responses stream live with the model's reasoning rendered separately
from the answer. Conversations persist automatically and can be
navigated chronologically.

Quick Start:
  parley chat                  # Start an interactive conversation
  parley list                  # List saved conversations
  parley delete <chat-id>      # Delete a conversation`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitMetrics()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.parley/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".parley", "config.yaml")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath())
}

// openBackend builds the session backend the config selects.
func openBackend(cfg *config.Config) (session.Backend, error) {
	switch cfg.Storage.Backend {
	case "redis":
		ttl, err := cfg.Storage.ParseRedisTTL()
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisBackendFromClient(client, cfg.Storage.RedisPrefix, ttl), nil
	default:
		return session.NewFileBackend(cfg.Storage.Dir)
	}
}
