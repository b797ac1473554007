package htmldoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nonVisibleSelector matches elements whose text content is never
// rendered and so must not feed anti-bot phrase matching.
const nonVisibleSelector = "script, style, template"

// Document is a parsed HTML page.
// It is immutable after Parse and safe for concurrent reads.
type Document struct {
	doc  *goquery.Document
	text string
}

// Parse parses an HTML body.
func Parse(body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	return &Document{
		doc:  doc,
		text: visibleText(doc),
	}, nil
}

// visibleText returns the lower-cased, whitespace-collapsed text of the
// document with script and style content removed.
func visibleText(doc *goquery.Document) string {
	sel := doc.Selection.Clone()
	sel.Find(nonVisibleSelector).Remove()
	return strings.ToLower(strings.Join(strings.Fields(sel.Text()), " "))
}

// Title returns the trimmed text of the first <title> element.
// The second result is false when there is no title or it is blank.
func (d *Document) Title() (string, bool) {
	title := strings.TrimSpace(d.doc.Find("title").First().Text())
	return title, title != ""
}

// OpenGraphTitle returns the content of <meta property="og:title">.
func (d *Document) OpenGraphTitle() (string, bool) {
	content, ok := d.doc.Find(`meta[property="og:title"]`).First().Attr("content")
	content = strings.TrimSpace(content)
	return content, ok && content != ""
}

// Text returns the lower-cased visible text of the whole document.
func (d *Document) Text() string {
	return d.text
}

// HasElement reports whether an element named tag carries attr with
// exactly value, e.g. HasElement("form", "id", "cf-challenge-form").
func (d *Document) HasElement(tag, attr, value string) bool {
	return d.doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		return ok && v == value
	}).Length() > 0
}

// Links returns the raw href values of every <a href> in document
// order. Values are trimmed but otherwise unresolved.
func (d *Document) Links() []string {
	links := make([]string, 0)
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href != "" {
			links = append(links, href)
		}
	})
	return links
}
