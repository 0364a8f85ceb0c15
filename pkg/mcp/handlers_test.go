package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crawl-core/pkg/config"
	"crawl-core/pkg/engine"
	"crawl-core/pkg/fetch"
)

func testServer(t *testing.T, withFetcher bool, mutate func(cfg *config.AppConfig)) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	eng, err := engine.New(context.Background(), cfg, logrus.NewEntry(logger))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	sc := &ServerConfig{Engine: eng, Transport: "stdio", Logger: logger}
	if withFetcher {
		entry := logrus.NewEntry(logger)
		sc.Fetcher = fetch.NewFetcher(fetch.NewClient(cfg.HTTPClientSettings, entry), cfg, entry)
	}
	s, err := NewServer(sc)
	require.NoError(t, err)
	return s
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func decode(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func pageBody(links string, words ...string) string {
	return "<html><body>" + links + "<p>" + strings.Join(words, " ") + "</p></body></html>"
}

func numbered(seed string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", seed, i)
	}
	return out
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(&ServerConfig{})
	assert.Error(t, err)
}

func TestHandleProcessPage_Admitted(t *testing.T) {
	s := testServer(t, false, nil)
	body := pageBody(`<a href="/b.html"></a><a href="http://example.com/x"></a>`, numbered("w", 120)...)

	res, err := s.handleProcessPage(context.Background(), callRequest("process_page", map[string]interface{}{
		"url":          "http://www.ics.uci.edu/a",
		"body":         body,
		"content_type": "text/html; charset=utf-8",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decode(t, res)
	assert.Equal(t, true, out["admitted"])
	assert.Equal(t, "admitted", out["reason"])
	assert.Equal(t, []interface{}{"http://www.ics.uci.edu/b.html"}, out["links"])
	assert.EqualValues(t, 120, out["word_count"])
	assert.NotEmpty(t, out["fingerprint"])
}

func TestHandleProcessPage_Rejected(t *testing.T) {
	s := testServer(t, false, nil)

	res, err := s.handleProcessPage(context.Background(), callRequest("process_page", map[string]interface{}{
		"url":    "http://www.ics.uci.edu/missing",
		"status": 404,
		"body":   "not found",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decode(t, res)
	assert.Equal(t, false, out["admitted"])
	assert.Equal(t, "dead", out["reason"])
	assert.Empty(t, out["links"])
}

func TestHandleProcessPage_MissingURL(t *testing.T) {
	s := testServer(t, false, nil)

	res, err := s.handleProcessPage(context.Background(), callRequest("process_page", map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleProcessPage_FetchDisabled(t *testing.T) {
	s := testServer(t, false, nil)

	res, err := s.handleProcessPage(context.Background(), callRequest("process_page", map[string]interface{}{
		"url":   "http://www.ics.uci.edu/a",
		"fetch": true,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not enabled")
}

func TestHandleProcessPage_LiveFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, pageBody(`<a href="/next"></a>`, numbered("live", 110)...))
	}))
	defer srv.Close()

	s := testServer(t, true, func(cfg *config.AppConfig) {
		cfg.AllowedDomains = []string{"127.0.0.1"}
	})

	res, err := s.handleProcessPage(context.Background(), callRequest("process_page", map[string]interface{}{
		"url":   srv.URL + "/start",
		"fetch": true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	out := decode(t, res)
	assert.Equal(t, true, out["admitted"])
	assert.EqualValues(t, 200, out["status"])
	assert.Equal(t, []interface{}{srv.URL + "/next"}, out["links"])
}

func TestHandleProcessPage_EngineClosed(t *testing.T) {
	s := testServer(t, false, nil)
	require.NoError(t, s.Shutdown(context.Background()))

	res, err := s.handleProcessPage(context.Background(), callRequest("process_page", map[string]interface{}{
		"url":  "http://www.ics.uci.edu/a",
		"body": pageBody("", numbered("w", 120)...),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "closed")
}

func TestHandleIsVisited(t *testing.T) {
	s := testServer(t, false, nil)
	ctx := context.Background()

	_, err := s.handleProcessPage(ctx, callRequest("process_page", map[string]interface{}{
		"url":    "http://www.ics.uci.edu/gone",
		"status": 404,
	}))
	require.NoError(t, err)

	res, err := s.handleIsVisited(ctx, callRequest("is_visited", map[string]interface{}{"url": "HTTP://WWW.ICS.UCI.EDU:80/gone/#x"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	out := decode(t, res)
	assert.Equal(t, "http://www.ics.uci.edu/gone", out["url"])
	assert.Equal(t, true, out["visited"], "rejected pages are still visited")

	res, err = s.handleIsVisited(ctx, callRequest("is_visited", map[string]interface{}{"url": "http://www.ics.uci.edu/never"}))
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, res)["visited"])

	res, err = s.handleIsVisited(ctx, callRequest("is_visited", map[string]interface{}{"url": "not a url"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	require.NoError(t, s.Shutdown(ctx))
	res, err = s.handleIsVisited(ctx, callRequest("is_visited", map[string]interface{}{"url": "http://www.ics.uci.edu/gone"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "closed")
}

func TestReportTools(t *testing.T) {
	s := testServer(t, false, func(cfg *config.AppConfig) {
		cfg.MinWords = 5
	})
	ctx := context.Background()

	pages := []struct {
		url  string
		text []string
	}{
		{"http://www.ics.uci.edu/one", []string{"crawler", "crawler", "crawler", "index", "the", "page"}},
		{"http://vision.ics.uci.edu/two", []string{"crawler", "index", "graph", "graph", "and", "more", "words", "here"}},
	}
	for _, p := range pages {
		res, err := s.handleProcessPage(ctx, callRequest("process_page", map[string]interface{}{
			"url":  p.url,
			"body": pageBody("", p.text...),
		}))
		require.NoError(t, err)
		require.Equal(t, true, decode(t, res)["admitted"], p.url)
	}

	t.Run("longest_page", func(t *testing.T) {
		res, err := s.handleLongestPage(ctx, callRequest("longest_page", nil))
		require.NoError(t, err)
		out := decode(t, res)
		assert.Equal(t, "http://vision.ics.uci.edu/two", out["url"])
		assert.EqualValues(t, 8, out["word_count"])
	})

	t.Run("subdomains", func(t *testing.T) {
		res, err := s.handleSubdomains(ctx, callRequest("subdomains", nil))
		require.NoError(t, err)
		out := decode(t, res)
		assert.EqualValues(t, 2, out["total_subdomains"])
		subs := out["subdomains"].([]interface{})
		first := subs[0].(map[string]interface{})
		assert.Equal(t, "vision.ics.uci.edu", first["subdomain"])
		assert.EqualValues(t, 1, first["pages"])
	})

	t.Run("top_words", func(t *testing.T) {
		res, err := s.handleTopWords(ctx, callRequest("top_words", map[string]interface{}{"n": 2}))
		require.NoError(t, err)
		out := decode(t, res)
		words := out["words"].([]interface{})
		require.Len(t, words, 2)
		assert.Equal(t, map[string]interface{}{"word": "crawler", "count": float64(4)}, words[0])
		assert.Equal(t, map[string]interface{}{"word": "graph", "count": float64(2)}, words[1])
	})

	t.Run("crawl_report", func(t *testing.T) {
		res, err := s.handleReport(ctx, callRequest("crawl_report", nil))
		require.NoError(t, err)
		out := decode(t, res)
		assert.NotEmpty(t, out["run_id"])
		assert.EqualValues(t, 2, out["unique_pages"])
		assert.EqualValues(t, 2, out["visited_urls"])
	})
}

func TestClampTopWords(t *testing.T) {
	assert.Equal(t, 50, clampTopWords(0))
	assert.Equal(t, 50, clampTopWords(-3))
	assert.Equal(t, 7, clampTopWords(7))
	assert.Equal(t, maxTopWords, clampTopWords(maxTopWords+1))
}

func TestFormatJSON(t *testing.T) {
	got := formatJSON(map[string]interface{}{"a": 1})
	assert.JSONEq(t, `{"a": 1}`, got)
}
