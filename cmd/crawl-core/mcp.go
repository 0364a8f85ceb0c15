package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crawl-core/pkg/fetch"
	"crawl-core/pkg/mcp"
)

// NewMCPServerCmd creates the mcp-server command.
func NewMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the decision engine over MCP (Model Context Protocol)",
		Long:  `Start an MCP server holding one decision engine for the lifetime of the process.

Available MCP Tools:
  process_page    Run a page (given, or fetched with fetch=true) through the engine
  longest_page    Admitted page with the most words
  subdomains      Unique pages per host
  top_words       Most frequent non-stop words
  crawl_report    Full report including rejection counts

Logs go to stderr; with the stdio transport stdout carries the protocol.`,
		Example: `  # stdio transport (for desktop MCP clients)
  crawl-core mcp-server --config config.yaml

  # SSE transport on port 8080, allowing live fetches
  crawl-core mcp-server --transport sse --port 8080 --allow-fetch`,
		Args: cobra.NoArgs,
		RunE: runMCPServer,
	}
	cmd.Flags().String("transport", "stdio", "Transport type (stdio, sse)")
	cmd.Flags().Int("port", 8080, "HTTP port (for sse transport)")
	cmd.Flags().Bool("allow-fetch", false, "Let process_page fetch URLs itself")
	return cmd
}

func runMCPServer(cmd *cobra.Command, _ []string) error {
	env, err := setupRun(cmd)
	if err != nil {
		return err
	}

	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	serverCfg := &mcp.ServerConfig{
		Engine:    env.engine,
		Transport: transport,
		Port:      port,
		Logger:    env.log,
	}
	if allow, _ := cmd.Flags().GetBool("allow-fetch"); allow {
		entry := logrus.NewEntry(env.log)
		serverCfg.Fetcher = fetch.NewFetcher(fetch.NewClient(env.cfg.HTTPClientSettings, entry), env.cfg, entry)
	}

	server, err := mcp.NewServer(serverCfg)
	if err != nil {
		env.engine.Close()
		return err
	}
	defer server.Shutdown(context.Background())

	env.log.Infof("Starting MCP server (transport: %s, run: %s)", transport, env.engine.RunID())
	return server.Run()
}
