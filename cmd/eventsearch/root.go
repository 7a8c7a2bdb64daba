package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PeterSurowski/ai-event-search/config"
	"github.com/PeterSurowski/ai-event-search/secret"
)

// Version is set at build time.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "eventsearch",
	Short: "Tenant-scoped event search for AI agents",
	Long: `eventsearch exposes operational events to AI agents as tools.

Every call presents a credential that maps to a set of services; results
never include events from services outside that set, and every access
attempt is written to the audit trail.

Configuration is read from --config (YAML, TOML or JSON) and from
EVENTSEARCH_* environment variables, e.g. EVENTSEARCH_DATABASE_DSN.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
}

// loadConfig reads the configuration and resolves secret references.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx, secret.DefaultRegistry); err != nil {
		return nil, fmt.Errorf("resolve secrets: %w", err)
	}
	return cfg, nil
}
