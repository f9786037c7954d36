// Command workflow-mcp-server starts the workflow generator MCP (Model
// Context Protocol) server.
//
// The server runs over stdio, making it compatible with any MCP-capable AI
// client. It exposes workflow generation, offline synthesis, validation and
// the document schema as tools. Logs go to stderr so they never mix with the
// protocol stream.
//
// Usage:
//
//	workflow-mcp-server [options]
//
// Options:
//
//	-config string   Path to the YAML configuration file (providers section is used)
//	-version         Show version and exit
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/GoCodeAlone/workflowgen/config"
	workflowmcp "github.com/GoCodeAlone/workflowgen/mcp"
	"github.com/GoCodeAlone/workflowgen/setup"
)

func main() {
	configFile := flag.String("config", "", "Path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("workflow-mcp-server %s\n", workflowmcp.Version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	svc, err := setup.NewService(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build providers: %v\n", err)
		os.Exit(1)
	}

	srv := workflowmcp.NewServer(svc, workflowmcp.WithLogger(logger))
	if err := srv.ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
