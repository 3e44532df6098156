package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Sternrassler/gh-issue-slot/pkg/config"
	"github.com/spf13/cobra"
)

func newPickCommand(load func() (*config.Config, error)) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "pick <rand|fq|rq> <count> [issues|prs|all]",
		Short: "Print a selection once",
		Example: `  issue-slot pick rand 3 issues
  issue-slot pick fq 5 prs
  issue-slot pick rq 2 --as octocat
  issue-slot pick rq 4 all`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("count must be a number (got %q)", args[1])
			}
			noun := ""
			if len(args) == 3 {
				noun = args[2]
			}

			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			rep := noticePrinter(cmd.ErrOrStderr())
			inv, err := a.invocation(ctx, request{
				Strategy: args[0],
				Count:    count,
				Noun:     noun,
				Caller:   caller,
			}, rep)
			if err != nil {
				return err
			}

			sel, err := a.runner.Run(ctx, inv, rep)
			if err != nil {
				return err
			}
			return renderSelection(cmd.OutOrStdout(), sel)
		},
	}

	cmd.Flags().StringVar(&caller, "as", getEnv("GITHUB_USER", ""), "GitHub login whose review queue rq scans")

	return cmd
}

