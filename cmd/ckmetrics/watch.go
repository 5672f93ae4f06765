package main

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/panbanda/ckmetrics/internal/output"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/panbanda/ckmetrics/pkg/watch"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-run the analysis whenever a source file changes",
		ArgsUsage: "[path]",
		Flags: append(viewFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before re-running after a change",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	viewOpts, err := env.viewOptions(c)
	if err != nil {
		return err
	}

	root := getPath(c)
	a := env.newAnalyzer(root)
	defer a.Close()

	render := func() {
		report, err := a.AnalyzeDir(c.Context, root)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				color.Red("Error: %v", err)
			}
			return
		}
		report.RelativeTo(root)
		if err := renderReport(env, c, report, viewOpts); err != nil {
			env.logger.Error("render report", zap.Error(err))
		}
	}

	w, err := watch.NewWatcher(root, env.cfg, c.Duration("debounce"))
	if err != nil {
		return err
	}
	defer w.Stop()
	w.SetLogger(env.logger)
	w.SetCallback(func(changed []string) {
		env.logger.Debug("re-running analysis", zap.Int("changed", len(changed)))
		render()
	})

	render()
	if err := w.Start(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// renderReport writes one report; an --output file is rewritten on every run.
func renderReport(env *runtimeEnv, c *cli.Context, report *ck.Report, opts []output.ViewOption) error {
	formatter, err := env.newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.NewMetricsView(report, opts...))
}
