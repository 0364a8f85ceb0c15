package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"crawl-core/pkg/models"
	"crawl-core/pkg/parse"
	"crawl-core/pkg/utils"
)

const maxTopWords = 1000

// handleProcessPage handles the process_page tool
func (s *Server) handleProcessPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	var result models.FetchResult
	if request.GetBool("fetch", false) {
		if s.cfg.Fetcher == nil {
			return mcp.NewToolResultError("live fetching is not enabled on this server"), nil
		}
		fetched, err := s.cfg.Fetcher.Fetch(ctx, urlStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to fetch URL: %v", err)), nil
		}
		result = fetched
	} else {
		result = models.FetchResult{
			URL:          urlStr,
			Status:       request.GetInt("status", 200),
			Body:         []byte(request.GetString("body", "")),
			RedirectedTo: request.GetString("redirected_to", ""),
		}
		if ct := request.GetString("content_type", ""); ct != "" {
			result.Headers = map[string]string{"Content-Type": ct}
		}
	}

	out, err := s.cfg.Engine.ProcessPage(urlStr, result)
	if err != nil {
		if errors.Is(err, utils.ErrEngineClosed) {
			return mcp.NewToolResultError("crawl engine is closed"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("processing failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(outcomeFields(out, result.Status))), nil
}

// handleLongestPage handles the longest_page tool
func (s *Server) handleLongestPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	longest := s.cfg.Engine.Longest()
	result := map[string]interface{}{
		"url":        longest.URL,
		"word_count": longest.WordCount,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleSubdomains handles the subdomains tool
func (s *Server) handleSubdomains(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subdomains := s.cfg.Engine.Subdomains()
	result := map[string]interface{}{
		"subdomains":       subdomains,
		"total_subdomains": len(subdomains),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleTopWords handles the top_words tool
func (s *Server) handleTopWords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := clampTopWords(request.GetInt("n", 50))
	words := s.cfg.Engine.TopWords(n)
	result := map[string]interface{}{
		"words": words,
		"n":     n,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleReport handles the crawl_report tool
func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := request.GetInt("n", 0)
	if n > maxTopWords {
		n = maxTopWords
	}
	report := s.cfg.Engine.Report(n)

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode report: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// handleIsVisited handles the is_visited tool
func (s *Server) handleIsVisited(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlStr := request.GetString("url", "")
	if urlStr == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	normalized, _, err := parse.ParseAndNormalize(urlStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid url: %v", err)), nil
	}

	visited, err := s.cfg.Engine.IsVisited(urlStr)
	if err != nil {
		if errors.Is(err, utils.ErrEngineClosed) {
			return mcp.NewToolResultError("crawl engine is closed"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	result := map[string]interface{}{
		"url":     normalized,
		"visited": visited,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// outcomeFields flattens an Outcome for JSON output
func outcomeFields(out models.Outcome, status int) map[string]interface{} {
	links := out.Links
	if links == nil {
		links = []string{}
	}
	fields := map[string]interface{}{
		"url":        out.URL,
		"status":     status,
		"admitted":   out.Verdict.Admitted,
		"reason":     out.Verdict.Reason.String(),
		"links":      links,
		"link_count": len(links),
	}
	if out.EffectiveURL != "" && out.EffectiveURL != out.URL {
		fields["effective_url"] = out.EffectiveURL
	}
	if out.WordCount > 0 {
		fields["word_count"] = out.WordCount
	}
	if out.Fingerprint != "" {
		fields["fingerprint"] = out.Fingerprint
	}
	return fields
}

func clampTopWords(n int) int {
	if n <= 0 {
		return 50
	}
	if n > maxTopWords {
		return maxTopWords
	}
	return n
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
