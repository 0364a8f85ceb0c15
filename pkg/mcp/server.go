package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"crawl-core/pkg/engine"
	"crawl-core/pkg/fetch"
)

const (
	serverName    = "crawl-core"
	serverVersion = "0.3.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Engine    *engine.Engine
	Fetcher   *fetch.Fetcher // Optional; enables fetch=true on process_page
	Transport string         // "stdio" or "sse"
	Port      int
	Logger    *logrus.Logger
}

// Server exposes one crawl engine over MCP
type Server struct {
	mcpServer *server.MCPServer
	cfg       *ServerConfig
	log       *logrus.Entry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("Engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		cfg:       cfg,
		log:       cfg.Logger.WithField("component", "mcp"),
	}

	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	// process_page - Run one fetched page through the admission pipeline
	processPageTool := mcp.NewTool("process_page",
		mcp.WithDescription("Run a fetched page through the crawl decision pipeline and return the links worth enqueueing"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL that was requested"),
		),
		mcp.WithString("body",
			mcp.Description("Raw response body (HTML). Ignored when fetch is true"),
		),
		mcp.WithNumber("status",
			mcp.Description("HTTP status of the response (default: 200)"),
		),
		mcp.WithString("content_type",
			mcp.Description("Content-Type header of the response"),
		),
		mcp.WithString("redirected_to",
			mcp.Description("Final URL if the fetcher followed redirects"),
		),
		mcp.WithBoolean("fetch",
			mcp.Description("Fetch the URL live instead of using body/status"),
		),
	)
	s.mcpServer.AddTool(processPageTool, s.handleProcessPage)

	// longest_page - Admitted page with the most words
	longestPageTool := mcp.NewTool("longest_page",
		mcp.WithDescription("Return the admitted page with the highest word count"),
	)
	s.mcpServer.AddTool(longestPageTool, s.handleLongestPage)

	// subdomains - Unique pages per host
	subdomainsTool := mcp.NewTool("subdomains",
		mcp.WithDescription("List every host seen with its number of unique admitted pages, sorted by host"),
	)
	s.mcpServer.AddTool(subdomainsTool, s.handleSubdomains)

	// top_words - Most frequent non-stop words
	topWordsTool := mcp.NewTool("top_words",
		mcp.WithDescription("Return the most frequent words across admitted pages, stop words excluded"),
		mcp.WithNumber("n",
			mcp.Description("Number of words to return (default: 50, max: 1000)"),
		),
	)
	s.mcpServer.AddTool(topWordsTool, s.handleTopWords)

	// crawl_report - Full analytics snapshot
	reportTool := mcp.NewTool("crawl_report",
		mcp.WithDescription("Return the full crawl report including rejection counts"),
		mcp.WithNumber("n",
			mcp.Description("Number of top words to include (default: configured top_words)"),
		),
	)
	s.mcpServer.AddTool(reportTool, s.handleReport)

	// is_visited - Visited-set lookup
	isVisitedTool := mcp.NewTool("is_visited",
		mcp.WithDescription("Report whether a URL (normalized first) has been claimed in this run's visited set"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to look up"),
		),
	)
	s.mcpServer.AddTool(isVisitedTool, s.handleIsVisited)

	s.log.Infof("Registered %d MCP tools", 6)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown closes the engine so that in-flight calls finish and later ones fail
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	return s.cfg.Engine.Close()
}
