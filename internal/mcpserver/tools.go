package mcpserver

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/ckmetrics/internal/output"
	"github.com/panbanda/ckmetrics/internal/scanner"
	"github.com/panbanda/ckmetrics/internal/vcs"
	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/panbanda/ckmetrics/pkg/config"
	"github.com/panbanda/ckmetrics/pkg/history"
)

// AnalyzeInput is the base input for all tools.
type AnalyzeInput struct {
	Path   string `json:"path,omitempty" jsonschema:"Project directory to analyze. Defaults to the current directory."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// CKInput adds options for a single analysis.
type CKInput struct {
	AnalyzeInput
	Extension string `json:"extension,omitempty" jsonschema:"Source file extension. Default .py."`
	Sort      string `json:"sort,omitempty" jsonschema:"Sort by metric: lcom, wmc, cbo, rfc, dit, or noc. Default lcom."`
	Top       int    `json:"top,omitempty" jsonschema:"Show top N classes. Default 20, 0 keeps the default."`
	Revision  string `json:"revision,omitempty" jsonschema:"Git revision to analyze instead of the working tree."`
}

// HistoryInput adds options for revision history.
type HistoryInput struct {
	AnalyzeInput
	Revisions int `json:"revisions,omitempty" jsonschema:"Number of recent commits to analyze. Default 5."`
}

const defaultTop = 20

func getPath(input AnalyzeInput) string {
	if input.Path == "" {
		return "."
	}
	return input.Path
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf strings.Builder
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// configFor returns a copy of the server config with per-call overrides applied.
func (s *Server) configFor(extension string) *config.Config {
	cfg := *s.config
	if extension != "" {
		if !strings.HasPrefix(extension, ".") {
			extension = "." + extension
		}
		cfg.Analysis.Extension = extension
	}
	return &cfg
}

func (s *Server) historyRunner(cfg *config.Config, a *ck.Analyzer, path string) (*history.Runner, error) {
	repo, err := vcs.DefaultOpener().PlainOpenWithDetect(path)
	if err != nil {
		return nil, err
	}
	return history.NewRunner(repo, a, scanner.NewScanner(cfg), path, s.logger)
}

func (s *Server) handleAnalyzeCK(ctx context.Context, req *mcp.CallToolRequest, input CKInput) (*mcp.CallToolResult, any, error) {
	path := getPath(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	sortKey, err := ck.ParseSortKey(input.Sort)
	if err != nil {
		return toolError(err.Error())
	}
	top := input.Top
	if top <= 0 {
		top = defaultTop
	}

	cfg := s.configFor(input.Extension)
	if err := cfg.Validate(); err != nil {
		return toolError(err.Error())
	}
	a := ck.New(ck.WithConfig(cfg), ck.WithLogger(s.logger))
	defer a.Close()

	var report *ck.Report
	var revision string
	if input.Revision != "" {
		runner, err := s.historyRunner(cfg, a, path)
		if err != nil {
			return toolError(err.Error())
		}
		var info vcs.CommitInfo
		report, info, err = runner.AnalyzeRevision(ctx, input.Revision)
		if err != nil {
			return toolError(err.Error())
		}
		revision = info.ShortSHA()
	} else {
		report, err = a.AnalyzeDir(ctx, path)
		if err != nil {
			return toolError(err.Error())
		}
		report.RelativeTo(path)
	}

	view := output.NewMetricsView(report,
		output.WithThresholds(cfg.Thresholds),
		output.WithSort(sortKey),
		output.WithTop(top),
		output.WithRevision(revision),
	)
	return toolResult(view, format)
}

func (s *Server) handleAnalyzeHistory(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, any, error) {
	path := getPath(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	cfg := s.configFor("")
	a := ck.New(ck.WithConfig(cfg), ck.WithLogger(s.logger))
	defer a.Close()

	runner, err := s.historyRunner(cfg, a, path)
	if err != nil {
		return toolError(err.Error())
	}
	result, err := runner.Run(ctx, input.Revisions)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(output.NewHistoryView(result), format)
}
