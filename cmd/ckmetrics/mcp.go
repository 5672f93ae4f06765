package main

import (
	"github.com/panbanda/ckmetrics/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes the C&K analysis
as tools an LLM can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "ckmetrics": {
        "command": "ckmetrics",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_ck          Per-class WMC, DIT, NOC, RFC, CBO, LCOM
  - analyze_ck_history  Mean metrics and trends over recent commits`,
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	return mcpserver.NewServer(version, env.cfg, env.logger).Run(c.Context)
}
