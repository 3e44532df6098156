package main

import (
	"github.com/Sternrassler/gh-issue-slot/pkg/config"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the issue-slot command tree.
func NewRootCommand(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "issue-slot",
		Short: "Pick open GitHub issues and pull requests that need attention",
		Long: `issue-slot searches a GitHub repository and hands out a small selection:

  rand  random open items
  fq    oldest items of the feedback queue
  rq    oldest pull requests waiting for your review

Settings come from an optional TOML or YAML file (--config) and the
GITHUB_TOKEN, REDIS_URL, LOG_LEVEL and PORT environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", getEnv("ISSUE_SLOT_CONFIG", ""), "config file (.toml, .yaml)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(newPickCommand(load))
	root.AddCommand(newServeCommand(load))

	return root
}
