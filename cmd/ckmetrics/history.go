package main

import (
	"fmt"

	"github.com/panbanda/ckmetrics/internal/output"
	"github.com/panbanda/ckmetrics/internal/progress"
	"github.com/panbanda/ckmetrics/internal/scanner"
	"github.com/panbanda/ckmetrics/internal/vcs"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/panbanda/ckmetrics/pkg/history"
	"github.com/urfave/cli/v2"
)

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Track mean C&K metrics across recent git commits",
		ArgsUsage: "[path]",
		Description: `Analyzes the committed tree of the last N commits, oldest first, without
touching the working tree, and fits a trend through the mean WMC, CBO and LCOM.

Examples:
  ckmetrics history                    # last 5 commits
  ckmetrics history --revisions 20 src`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "revisions",
				Value: history.DefaultRevisions,
				Usage: "Number of recent commits to analyze",
			},
		},
		Action: runHistoryCmd,
	}
}

// newHistoryRunner opens the repository containing root.
func newHistoryRunner(env *runtimeEnv, a *ck.Analyzer, root string) (*history.Runner, error) {
	repo, err := vcs.DefaultOpener().PlainOpenWithDetect(root)
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", root, err)
	}
	return history.NewRunner(repo, a, scanner.NewScanner(env.cfg), root, env.logger)
}

func runHistoryCmd(c *cli.Context) error {
	revisions := c.Int("revisions")
	if revisions <= 0 {
		return fmt.Errorf("--revisions must be a positive integer (got %d)", revisions)
	}

	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	root := getPath(c)
	a := env.newAnalyzer(root)
	defer a.Close()

	runner, err := newHistoryRunner(env, a, root)
	if err != nil {
		return err
	}

	spinner := progress.NewSpinner("Analyzing revisions...")
	result, err := runner.Run(c.Context, revisions)
	if err != nil {
		spinner.FinishError(err)
		return err
	}
	spinner.FinishSuccess()

	formatter, err := env.newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewHistoryView(result))
}
