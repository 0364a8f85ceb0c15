package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"crawl-core/pkg/models"
	"crawl-core/pkg/utils"
)

// WriteMarkdown renders r as a GitHub-flavored Markdown document
func WriteMarkdown(w io.Writer, r models.Report) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawl Report")
	md.PlainText("")

	generated := "-"
	if !r.GeneratedAt.IsZero() {
		generated = r.GeneratedAt.Format("2006-01-02 15:04:05 MST")
	}
	longest := "-"
	if r.LongestPage.URL != "" {
		longest = fmt.Sprintf("%s (%d words)", r.LongestPage.URL, r.LongestPage.WordCount)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + r.RunID + "`"},
			{"Generated", generated},
			{"Unique pages", strconv.Itoa(r.UniquePages)},
			{"Visited URLs", strconv.Itoa(r.VisitedURLs)},
			{"Longest page", longest},
		},
	})
	md.PlainText("")

	writeMarkdownRejections(md, r.Rejections)

	md.H2("Top Words")
	md.PlainText("")
	if len(r.TopWords) == 0 {
		md.PlainText("No words recorded.")
	} else {
		rows := make([][]string, len(r.TopWords))
		for i, wc := range r.TopWords {
			rows[i] = []string{strconv.Itoa(i + 1), wc.Word, strconv.Itoa(wc.Count)}
		}
		md.Table(markdown.TableSet{Header: []string{"#", "Word", "Count"}, Rows: rows})
	}
	md.PlainText("")

	md.H2("Subdomains")
	md.PlainText("")
	if len(r.Subdomains) == 0 {
		md.PlainText("No subdomains recorded.")
	} else {
		rows := make([][]string, len(r.Subdomains))
		for i, sc := range r.Subdomains {
			rows[i] = []string{sc.Subdomain, strconv.Itoa(sc.Pages)}
		}
		md.Table(markdown.TableSet{Header: []string{"Subdomain", "Pages"}, Rows: rows})
	}
	md.PlainText("")

	if err := md.Build(); err != nil {
		return fmt.Errorf("%w: writing markdown report: %w", utils.ErrReportWrite, err)
	}
	return nil
}

// writeMarkdownRejections writes the rejection table and a mermaid pie chart
func writeMarkdownRejections(md *markdown.Markdown, rejections map[string]int64) {
	md.H2("Rejections")
	md.PlainText("")
	if len(rejections) == 0 {
		md.Tip("No pages were rejected.")
		md.PlainText("")
		return
	}

	reasons := make([]string, 0, len(rejections))
	for reason := range rejections {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Rejections by reason"),
		piechart.WithShowData(true),
	)
	rows := make([][]string, len(reasons))
	for i, reason := range reasons {
		rows[i] = []string{reason, strconv.FormatInt(rejections[reason], 10)}
		chart.LabelAndIntValue(reason, uint64(rejections[reason]))
	}

	md.Table(markdown.TableSet{Header: []string{"Reason", "Count"}, Rows: rows})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}
