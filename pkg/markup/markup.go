// Package markup turns raw page bytes into hrefs and visible text. The rest of
// the crawl core only sees the Parser interface.
package markup

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Page is what one parse of a response body yields
type Page struct {
	Hrefs []string // Raw href values in document order, duplicates kept
	Text  string   // Text a reader would see, whitespace collapsed
}

// Parser extracts links and visible text from a page body in a single pass.
// Implementations must tolerate malformed markup and undecodable bytes
// without failing.
type Parser interface {
	Parse(body []byte, contentType string) Page
}

// linkSelector matches anchor-like elements carrying an href
const linkSelector = `a[href], area[href], link[href][rel~="alternate"], link[href][rel~="next"], link[href][rel~="prev"]`

// invisibleSelector matches elements whose text is never rendered
const invisibleSelector = "script, style, noscript, template"

// GoqueryParser implements Parser on top of goquery's html5 tree builder
type GoqueryParser struct {
	log *logrus.Entry
}

var _ Parser = (*GoqueryParser)(nil)

// NewGoqueryParser creates a GoqueryParser. A nil logger discards output.
func NewGoqueryParser(log *logrus.Entry) *GoqueryParser {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	return &GoqueryParser{log: log.WithField("component", "markup")}
}

// Parse implements Parser. Hrefs are collected before invisible elements are
// pruned for the text pass.
func (p *GoqueryParser) Parse(body []byte, contentType string) Page {
	doc := p.parse(body, contentType)
	if doc == nil {
		return Page{}
	}

	var page Page
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			page.Hrefs = append(page.Hrefs, href)
		}
	})

	doc.Find(invisibleSelector).Remove()
	var sb strings.Builder
	for _, n := range doc.Find("body").Nodes {
		collectText(n, &sb)
	}
	page.Text = strings.Join(strings.Fields(sb.String()), " ")
	return page
}

// parse decodes and parses body. It returns nil only when the reader itself
// fails, which the html5 tokenizer never does for in-memory input.
func (p *GoqueryParser) parse(body []byte, contentType string) *goquery.Document {
	if len(body) == 0 {
		return nil
	}
	decoded := Decode(body, contentType)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decoded))
	if err != nil {
		p.log.Debugf("Parsing body failed: %v", err)
		return nil
	}
	return doc
}

// collectText appends every text node under n, separated by spaces so block
// boundaries do not glue words together.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// Decode converts body to UTF-8 using the charset declared in contentType,
// then any <meta> declaration, then UTF-8. Invalid sequences become U+FFFD.
func Decode(body []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if enc != nil && name != "utf-8" {
		if out, _, err := transform.Bytes(enc.NewDecoder(), body); err == nil {
			body = out
		}
	}
	if utf8.Valid(body) {
		return string(body)
	}
	return string(bytes.ToValidUTF8(body, []byte(string(utf8.RuneError))))
}
