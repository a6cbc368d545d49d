package main

import (
	"context"
	"fmt"
	"os"

	"github.com/indrealty/realty-cms/pkg/realtycms/config"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand(openRuntime)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// opener builds the runtime a command operates on.
type opener func(ctx context.Context) (*config.ServerConfig, *config.Runtime, error)

func openRuntime(ctx context.Context) (*config.ServerConfig, *config.Runtime, error) {
	cfg, err := config.Load(config.WithEnv(), config.WithLogging("warn", ""))
	if err != nil {
		return nil, nil, err
	}
	rt, err := cfg.Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	if rt.Pool == nil {
		fmt.Fprintln(os.Stderr, "warning: DATABASE_URL is not set, changes are kept in memory and discarded on exit")
	}
	return cfg, rt, nil
}

// NewRootCommand creates the realtyctl command tree.
func NewRootCommand(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "realtyctl",
		Short: "Administer the realty CMS",
		Long: `realtyctl manages the realty CMS database, admin users and API tokens.

Configuration is read from the same environment variables as realty-api
(DATABASE_URL, DB_SCHEMA, JWT_SECRET, ...) or from CONFIG_FILE.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewMigrateCommand(open))
	rootCmd.AddCommand(NewUserCommand(open))
	rootCmd.AddCommand(NewTokenCommand(open))
	return rootCmd
}
