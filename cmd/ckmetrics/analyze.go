package main

import (
	"fmt"
	"strings"

	"github.com/panbanda/ckmetrics/internal/output"
	"github.com/panbanda/ckmetrics/internal/progress"
	"github.com/panbanda/ckmetrics/pkg/analyzer"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/urfave/cli/v2"
)

// viewFlags are shared by commands that print a class table.
func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort classes by lcom, wmc, cbo, rfc, dit or noc (default from config)",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Show only the top N classes (0 = all, default from config)",
		},
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Compute C&K metrics for every class in a project",
		ArgsUsage: "[path]",
		Description: `Parses every matching source file under path, links the inheritance
hierarchy across files and prints WMC, DIT, NOC, RFC, CBO and LCOM per class.
Files that fail to parse are listed after the table.

Examples:
  ckmetrics analyze                       # current directory
  ckmetrics analyze --sort cbo --top 20 src
  ckmetrics -f json analyze --revision HEAD~3 .`,
		Flags: append(viewFlags(),
			&cli.StringFlag{
				Name:  "extension",
				Usage: "Source file extension to analyze (default from config, .py)",
			},
			&cli.StringFlag{
				Name:  "revision",
				Usage: "Analyze a git revision instead of the working tree",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Files parsed concurrently (0 = 2x CPUs, 1 = sequential)",
			},
		),
		Action: runAnalyzeCmd,
	}
}

// applyAnalysisFlags copies --extension and --workers into the config.
func applyAnalysisFlags(c *cli.Context, env *runtimeEnv) error {
	if c.IsSet("extension") {
		ext := c.String("extension")
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		env.cfg.Analysis.Extension = ext
	}
	if c.IsSet("workers") {
		env.cfg.Analysis.Workers = c.Int("workers")
	}
	return env.cfg.Validate()
}

func runAnalyzeCmd(c *cli.Context) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	if err := applyAnalysisFlags(c, env); err != nil {
		return err
	}
	viewOpts, err := env.viewOptions(c)
	if err != nil {
		return err
	}

	root := getPath(c)
	a := env.newAnalyzer(root)
	defer a.Close()

	var report *ck.Report
	if rev := c.String("revision"); rev != "" {
		runner, err := newHistoryRunner(env, a, root)
		if err != nil {
			return err
		}
		r, info, err := runner.AnalyzeRevision(c.Context, rev)
		if err != nil {
			return err
		}
		report = r
		viewOpts = append(viewOpts, output.WithRevision(info.ShortSHA()))
	} else {
		tracker := progress.NewTracker("Analyzing classes...", 0)
		ctx := analyzer.WithTracker(c.Context, tracker.Analyzer())
		r, err := a.AnalyzeDir(ctx, root)
		if err != nil {
			tracker.FinishError(err)
			return fmt.Errorf("analysis failed: %w", err)
		}
		tracker.FinishSuccess()
		r.RelativeTo(root)
		report = r
	}

	formatter, err := env.newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewMetricsView(report, viewOpts...))
}
