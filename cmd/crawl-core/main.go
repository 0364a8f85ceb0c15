// Package main provides the crawl-core CLI.
//
// crawl-core decides, page by page, which links of a crawl are worth
// following. It can replay recorded fetch results, crawl live sites, or
// serve the decision engine over MCP.
//
// Usage:
//
//	crawl-core replay fetches.jsonl --report report.yaml
//	crawl-core crawl https://www.ics.uci.edu/ --max-pages 500
//	crawl-core mcp-server --transport stdio
//
// See --help for all available options.
package main

func main() {
	Execute()
}
