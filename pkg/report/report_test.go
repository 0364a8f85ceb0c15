package report

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"crawl-core/pkg/models"
	"crawl-core/pkg/utils"
)

func sampleReport() models.Report {
	return models.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		UniquePages: 3,
		VisitedURLs: 5,
		LongestPage: models.LongestPage{URL: "http://www.ics.uci.edu/long", WordCount: 812},
		Subdomains: []models.SubdomainCount{
			{Subdomain: "vision.ics.uci.edu", Pages: 1},
			{Subdomain: "www.ics.uci.edu", Pages: 2},
		},
		TopWords: []models.WordCount{
			{Word: "research", Count: 12},
			{Word: "students", Count: 7},
		},
		Rejections: map[string]int64{"dead": 1, "already_visited": 1},
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"report.yaml":   FormatYAML,
		"report.YML":    FormatYAML,
		"out/r.json":    FormatJSON,
		"REPORT.md":     FormatMarkdown,
		"stats.db":      FormatSQLite,
		"stats.sqlite3": FormatSQLite,
		"report.txt":    FormatText,
		"report":        FormatText,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatFromPath(path), path)
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleReport()))

	var decoded models.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleReport(), decoded)
	assert.Contains(t, buf.String(), "longest_page:")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 3, decoded["unique_pages"])
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "Unique pages:")
	assert.Contains(t, out, "http://www.ics.uci.edu/long (812 words)")
	assert.Contains(t, out, "Top 2 words:")
	assert.Contains(t, out, "research")
	assert.Contains(t, out, "vision.ics.uci.edu, 1")
	assert.Contains(t, out, "www.ics.uci.edu, 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("already_visited")), bytes.Index(buf.Bytes(), []byte("dead")), "rejections sorted")
}

func TestWriteText_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, models.Report{}))
	assert.Contains(t, buf.String(), "Longest page:")
	assert.NotContains(t, buf.String(), "Rejections:")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "# Crawl Report")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "http://www.ics.uci.edu/long (812 words)")
	assert.Contains(t, out, "## Rejections")
	assert.Contains(t, out, "```mermaid")
	assert.Contains(t, out, "already_visited")
	assert.Contains(t, out, "research")
	assert.Contains(t, out, "vision.ics.uci.edu")
}

func TestWriteMarkdown_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, models.Report{}))
	out := buf.String()

	assert.Contains(t, out, "No pages were rejected.")
	assert.Contains(t, out, "No words recorded.")
	assert.NotContains(t, out, "```mermaid")
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, FormatSQLite, sampleReport())
	assert.ErrorIs(t, err, utils.ErrReportWrite)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "report.yaml")
	require.NoError(t, WriteFile(yamlPath, sampleReport()))
	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-1")

	txtPath := filepath.Join(dir, "report.txt")
	require.NoError(t, WriteFile(txtPath, sampleReport()))
	data, err = os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Visited URLs:")

	err = WriteFile(filepath.Join(dir, "missing", "report.yaml"), sampleReport())
	assert.ErrorIs(t, err, utils.ErrReportWrite)
}

func TestSQLiteExporter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "report.db")

	exporter, err := NewSQLiteExporter(dbPath)
	require.NoError(t, err)
	require.NoError(t, exporter.Export(sampleReport()))

	// Re-export replaces the run rather than duplicating rows
	updated := sampleReport()
	updated.UniquePages = 4
	updated.TopWords = updated.TopWords[:1]
	require.NoError(t, exporter.Export(updated))
	require.NoError(t, exporter.Close())

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var uniquePages int
	var longestURL string
	require.NoError(t, db.QueryRow(`SELECT unique_pages, longest_url FROM runs WHERE run_id = ?`, "run-1").Scan(&uniquePages, &longestURL))
	assert.Equal(t, 4, uniquePages)
	assert.Equal(t, "http://www.ics.uci.edu/long", longestURL)

	var words, subdomains, rejections int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM word_frequencies`).Scan(&words))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM subdomains`).Scan(&subdomains))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM rejections`).Scan(&rejections))
	assert.Equal(t, 1, words)
	assert.Equal(t, 2, subdomains)
	assert.Equal(t, 2, rejections)

	var topWord string
	require.NoError(t, db.QueryRow(`SELECT word FROM word_frequencies WHERE run_id = ? AND rank = 1`, "run-1").Scan(&topWord))
	assert.Equal(t, "research", topWord)
}

func TestWriteFile_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stats.sqlite")
	require.NoError(t, WriteFile(dbPath, sampleReport()))

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
