// Package report renders an end-of-run models.Report as YAML, JSON, plain
// text, Markdown or a SQLite database.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"crawl-core/pkg/models"
	"crawl-core/pkg/utils"
)

// Output formats
const (
	FormatYAML     = "yaml"
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatSQLite   = "sqlite"
)

// FormatFromPath picks a format from a file extension, defaulting to text
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatText
	}
}

// WriteYAML encodes r as YAML
func WriteYAML(w io.Writer, r models.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("%w: encoding YAML: %w", utils.ErrReportWrite, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: closing YAML encoder: %w", utils.ErrReportWrite, err)
	}
	return nil
}

// WriteJSON encodes r as indented JSON
func WriteJSON(w io.Writer, r models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("%w: encoding JSON: %w", utils.ErrReportWrite, err)
	}
	return nil
}

// WriteText renders r for a terminal
func WriteText(w io.Writer, r models.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Run:\t%s\n", r.RunID)
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(tw, "Generated:\t%s\n", r.GeneratedAt.Format("2006-01-02 15:04:05Z07:00"))
	}
	fmt.Fprintf(tw, "Unique pages:\t%d\n", r.UniquePages)
	fmt.Fprintf(tw, "Visited URLs:\t%d\n", r.VisitedURLs)
	if r.LongestPage.URL != "" {
		fmt.Fprintf(tw, "Longest page:\t%s (%d words)\n", r.LongestPage.URL, r.LongestPage.WordCount)
	} else {
		fmt.Fprintf(tw, "Longest page:\t-\n")
	}

	if len(r.Rejections) > 0 {
		fmt.Fprintf(tw, "\nRejections:\n")
		reasons := make([]string, 0, len(r.Rejections))
		for reason := range r.Rejections {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(tw, "  %s\t%d\n", reason, r.Rejections[reason])
		}
	}

	fmt.Fprintf(tw, "\nTop %d words:\n", len(r.TopWords))
	for i, wc := range r.TopWords {
		fmt.Fprintf(tw, "  %d.\t%s\t%d\n", i+1, wc.Word, wc.Count)
	}

	fmt.Fprintf(tw, "\nSubdomains (%d):\n", len(r.Subdomains))
	for _, sc := range r.Subdomains {
		fmt.Fprintf(tw, "  %s, %d\n", sc.Subdomain, sc.Pages)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("%w: writing text report: %w", utils.ErrReportWrite, err)
	}
	return nil
}

// Write renders r to w in the given format. SQLite needs a file; use WriteFile.
func Write(w io.Writer, format string, r models.Report) error {
	switch format {
	case FormatYAML:
		return WriteYAML(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatMarkdown:
		return WriteMarkdown(w, r)
	case FormatText, "":
		return WriteText(w, r)
	default:
		return fmt.Errorf("%w: unsupported stream format '%s'", utils.ErrReportWrite, format)
	}
}

// WriteFile writes r to path, choosing the format from its extension
func WriteFile(path string, r models.Report) error {
	format := FormatFromPath(path)
	if format == FormatSQLite {
		exporter, err := NewSQLiteExporter(path)
		if err != nil {
			return err
		}
		defer exporter.Close()
		return exporter.Export(r)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create '%s': %w", utils.ErrReportWrite, path, err)
	}
	if err := Write(file, format, r); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close '%s': %w", utils.ErrReportWrite, path, err)
	}
	return nil
}
